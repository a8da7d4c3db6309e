package shop

import (
	"errors"
	"time"
)

// Product is a catalog item priced in petals.
type Product struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	PricePetals int64     `bson:"pricePetals" json:"pricePetals"`
	ImageKey    string    `bson:"imageKey,omitempty" json:"-"`
	ImageURL    string    `bson:"-" json:"imageUrl,omitempty"`
	Active      bool      `bson:"active" json:"active"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInvalidProduct     = errors.New("invalid product")
)
