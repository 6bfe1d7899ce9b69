package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Address struct {
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	State      string `json:"state,omitempty" bson:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

// User is an onboarding account keyed by its canonical phone number.
// LastTokenIssued is the revocation watermark: tokens issued before it
// (minus the configured grace) are rejected.
type User struct {
	ID               primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Phone            string              `json:"phone" bson:"phone"`
	Email            string              `json:"email,omitempty" bson:"email,omitempty"`
	IsVerified       bool                `json:"isVerified" bson:"isVerified"`
	LastLogin        *time.Time          `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	DeviceInfo       string              `json:"deviceInfo,omitempty" bson:"deviceInfo,omitempty"`
	LastTokenIssued  *time.Time          `json:"-" bson:"lastTokenIssued,omitempty"`
	PasswordHash     string              `json:"-" bson:"passwordHash,omitempty"`
	ProfilePicture   string              `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	CompanyName      string              `json:"companyName,omitempty" bson:"companyName,omitempty"`
	ContactPerson    string              `json:"contactPerson,omitempty" bson:"contactPerson,omitempty"`
	Address          *Address            `json:"address,omitempty" bson:"address,omitempty"`
	Website          string              `json:"website,omitempty" bson:"website,omitempty"`
	TaxID            string              `json:"taxId,omitempty" bson:"taxId,omitempty"`
	BusinessType     []string            `json:"businessType,omitempty" bson:"businessType,omitempty"`
	YearsInBusiness  int                 `json:"yearsInBusiness,omitempty" bson:"yearsInBusiness,omitempty"`
	SupplierID       *primitive.ObjectID `json:"supplierId,omitempty" bson:"supplierId,omitempty"`
	ProfileCompleted bool                `json:"profileCompleted" bson:"profileCompleted"`
	CreatedAt        time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser is the projection returned after login. It never carries the
// watermark or password hash.
type PublicUser struct {
	ID               string  `json:"id"`
	Phone            string  `json:"phone"`
	Email            string  `json:"email"`
	CompanyName      string  `json:"companyName"`
	ProfileCompleted bool    `json:"profileCompleted"`
	HasSupplierData  bool    `json:"hasSupplierData"`
	SupplierID       *string `json:"supplierId"`
}

func NewPublicUser(u *User, hasSupplier bool) PublicUser {
	pu := PublicUser{
		ID:               u.ID.Hex(),
		Phone:            u.Phone,
		Email:            u.Email,
		CompanyName:      u.CompanyName,
		ProfileCompleted: u.ProfileCompleted,
		HasSupplierData:  hasSupplier,
	}
	if hasSupplier && u.SupplierID != nil {
		id := u.SupplierID.Hex()
		pu.SupplierID = &id
	}
	return pu
}
