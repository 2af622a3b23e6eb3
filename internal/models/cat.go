package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Cat represents a cat owned by a user.
type Cat struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	CatName   string    `json:"cat_name" gorm:"uniqueIndex;type:varchar(100);not null" bson:"cat_name" validate:"required,min=1,max=100"`
	Weight    float64   `json:"weight" gorm:"not null" bson:"weight" validate:"required,gt=0"`
	Filename  string    `json:"filename" gorm:"type:varchar(255);not null" bson:"filename" validate:"required"`
	Birthdate time.Time `json:"birthdate" gorm:"not null" bson:"birthdate" validate:"required,notfuture"`
	Location  Point     `json:"location" gorm:"-" bson:"location" validate:"required"`
	Owner     string    `json:"owner" gorm:"index;type:varchar(36);not null" bson:"owner" validate:"required"`

	// Relational backends store the point as two indexed columns.
	Longitude float64 `json:"-" gorm:"column:location_lng;index" bson:"-" validate:"-"`
	Latitude  float64 `json:"-" gorm:"column:location_lat;index" bson:"-" validate:"-"`
}

// BeforeSave flattens the location into its columns.
func (c *Cat) BeforeSave(tx *gorm.DB) error {
	c.Longitude = c.Location.Lng()
	c.Latitude = c.Location.Lat()
	return nil
}

// AfterFind rebuilds the location from its columns.
func (c *Cat) AfterFind(tx *gorm.DB) error {
	c.Location = NewPoint(c.Longitude, c.Latitude)
	return nil
}

// IsOwnedBy reports whether userID owns the cat.
func (c *Cat) IsOwnedBy(userID string) bool {
	return userID != "" && c.Owner == userID
}

// Populate returns the cat with its owner reference resolved. A nil owner
// means the referenced user no longer exists.
func (c *Cat) Populate(owner *UserOutput) PopulatedCat {
	return PopulatedCat{
		ID:        c.ID,
		CatName:   c.CatName,
		Weight:    c.Weight,
		Filename:  c.Filename,
		Birthdate: c.Birthdate,
		Location:  c.Location,
		Owner:     owner,
	}
}

// PopulatedCat is a cat whose owner is rendered as a user instead of an id.
type PopulatedCat struct {
	ID        string      `json:"id"`
	CatName   string      `json:"cat_name"`
	Weight    float64     `json:"weight"`
	Filename  string      `json:"filename"`
	Birthdate time.Time   `json:"birthdate"`
	Location  Point       `json:"location"`
	Owner     *UserOutput `json:"owner"`
}

// CreateCatRequest holds the multipart form fields sent with an upload.
type CreateCatRequest struct {
	CatName   string  `json:"cat_name" form:"cat_name"`
	Weight    float64 `json:"weight" form:"weight"`
	Birthdate string  `json:"birthdate" form:"birthdate"`
}

// UpdateCatRequest is the owner-level partial update.
type UpdateCatRequest struct {
	CatName   *string  `json:"cat_name,omitempty" validate:"omitempty,min=1,max=100"`
	Weight    *float64 `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Birthdate *string  `json:"birthdate,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (r UpdateCatRequest) IsEmpty() bool {
	return r.CatName == nil && r.Weight == nil && r.Birthdate == nil
}

// AdminUpdateCatRequest additionally allows moving a cat and reassigning it.
type AdminUpdateCatRequest struct {
	UpdateCatRequest
	Location *Point  `json:"location,omitempty"`
	Owner    *string `json:"owner,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (r AdminUpdateCatRequest) IsEmpty() bool {
	return r.UpdateCatRequest.IsEmpty() && r.Location == nil && r.Owner == nil
}

var birthdateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseBirthdate accepts a calendar date or an RFC 3339 timestamp.
func ParseBirthdate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid birthdate %q: expected YYYY-MM-DD or RFC 3339", s)
}
