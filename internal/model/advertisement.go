package model

import "time"

// AdvertisementID is the fixed key of the one advertisement row.
const AdvertisementID = "site-banner"

type Advertisement struct {
	ID            string    `bson:"_id" json:"-"`
	Message       string    `bson:"message" json:"message"`
	Code          string    `bson:"code,omitempty" json:"code,omitempty"`
	ImageURL      string    `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	ImagePublicID string    `bson:"image_public_id,omitempty" json:"-"`
	Active        bool      `bson:"active" json:"active"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updatedAt"`
}
