package models

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	UserName string `json:"user_name" gorm:"type:varchar(100);not null" bson:"user_name" validate:"required,min=1,max=100"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255);not null" bson:"email" validate:"required,email,max=255"`
	Password string `json:"-" gorm:"type:varchar(255);not null" bson:"password" validate:"required"` // bcrypt hash once stored
	Role     string `json:"-" gorm:"type:varchar(10);not null;default:user" bson:"role" validate:"required,oneof=user admin"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Output strips the password hash and role.
func (u *User) Output() UserOutput {
	return UserOutput{
		ID:       u.ID,
		UserName: u.UserName,
		Email:    u.Email,
	}
}

// UserOutput is the public shape of a user.
type UserOutput struct {
	ID       string `json:"id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
}

// ToUserOutputList converts a slice of users to their public shape.
func ToUserOutputList(users []User) []UserOutput {
	out := make([]UserOutput, 0, len(users))
	for i := range users {
		out = append(out, users[i].Output())
	}
	return out
}

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	ID       string `json:"id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TokenID  string `json:"-"`
	// ExpiresAt is the token expiry as a unix timestamp.
	ExpiresAt int64 `json:"-"`
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Output strips the role from the identity.
func (i *Identity) Output() UserOutput {
	return UserOutput{
		ID:       i.ID,
		UserName: i.UserName,
		Email:    i.Email,
	}
}

// CreateUserRequest is the registration payload. Any role sent by the
// client is ignored.
type CreateUserRequest struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest is a partial update of the caller's own account.
type UpdateUserRequest struct {
	UserName *string `json:"user_name,omitempty" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=1"`
}

// IsEmpty reports whether no field was supplied.
func (r UpdateUserRequest) IsEmpty() bool {
	return r.UserName == nil && r.Email == nil && r.Password == nil
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
