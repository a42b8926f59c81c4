package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User carries only what audience expansion and channel providers need;
// full user management lives in the surrounding platform services.
type User struct {
	ID    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email string             `json:"email" bson:"email"`
	Phone string             `json:"phone,omitempty" bson:"phone,omitempty"`

	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`

	// Targeting attributes
	Role     string   `json:"role" bson:"role"` // mentor, founder, admin
	Tags     []string `json:"tags,omitempty" bson:"tags,omitempty"`
	Location string   `json:"location,omitempty" bson:"location,omitempty"`

	// Push delivery
	DeviceToken string `json:"deviceToken,omitempty" bson:"deviceToken,omitempty"`

	Locale string `json:"locale,omitempty" bson:"locale,omitempty"`

	IsActive     bool      `json:"isActive" bson:"isActive"`
	LastActiveAt time.Time `json:"lastActiveAt,omitempty" bson:"lastActiveAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
