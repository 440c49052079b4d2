package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	Category      string             `bson:"category" json:"category"`
	Brand         string             `bson:"brand" json:"brand"`
	ImageURL      string             `bson:"image_url" json:"imageUrl"`
	ImagePublicID string             `bson:"image_public_id" json:"imagePublicId"`
	Price         float64            `bson:"price" json:"price"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	Reviews       []Review           `bson:"reviews" json:"reviews"`
	RatingsAvg    float64            `bson:"ratings_avg" json:"ratingsAvg"`
	RatingsCount  int                `bson:"ratings_count" json:"ratingsCount"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	Name      string             `bson:"name" json:"name"` // author name at submission time
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// RecomputeRatings derives RatingsCount and RatingsAvg from Reviews.
func (p *Product) RecomputeRatings() {
	p.RatingsCount = len(p.Reviews)
	if p.RatingsCount == 0 {
		p.RatingsAvg = 0
		return
	}
	total := 0
	for _, r := range p.Reviews {
		total += r.Rating
	}
	p.RatingsAvg = float64(total) / float64(p.RatingsCount)
}

func (p *Product) ReviewBy(userID primitive.ObjectID) *Review {
	for i := range p.Reviews {
		if p.Reviews[i].UserID == userID {
			return &p.Reviews[i]
		}
	}
	return nil
}

func (p *Product) ReviewIndex(reviewID primitive.ObjectID) int {
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			return i
		}
	}
	return -1
}
