package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Supplier struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CompanyName   string             `json:"companyName" bson:"companyName"`
	ContactPerson string             `json:"contactPerson" bson:"contactPerson"`
	Email         string             `json:"email" bson:"email"`
	Phone         string             `json:"phone" bson:"phone"`
	Address       *Address           `json:"address,omitempty" bson:"address,omitempty"`
	Website       string             `json:"website,omitempty" bson:"website,omitempty"`
	BusinessType  []string           `json:"businessType,omitempty" bson:"businessType,omitempty"`
	Status        string             `json:"status" bson:"status"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}
