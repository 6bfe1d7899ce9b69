package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTP is the single pending login challenge for a phone.
type OTP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Phone     string             `bson:"phone" json:"phone"`
	Code      string             `bson:"code" json:"-"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
