// internal/domain/models/building.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Building belongs to exactly one Location.
type Building struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LocationID  primitive.ObjectID `bson:"location_id" json:"locationId"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Floors      int                `bson:"floors,omitempty" json:"floors,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"createdBy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
