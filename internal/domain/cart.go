package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LineItem is an embedded (product reference, quantity) pair inside a cart.
// The reference is weak: the cart names a product but does not own it, so
// an item can dangle if the product is deleted later.
type LineItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

// Cart holds an ordered sequence of line items. Order reflects insertion
// history. Within the sequence each product reference appears at most once;
// the add-product write upholds that by incrementing instead of duplicating.
// The create and replace-all paths store caller input verbatim and are the
// two accepted exceptions.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Products  []LineItem         `bson:"products" json:"products"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ResolvedLineItem is a line item with its product reference expanded to the
// full catalog record. Product keeps the raw identifier when the referenced
// record no longer exists.
type ResolvedLineItem struct {
	Product  interface{} `json:"product"`
	Quantity int         `json:"quantity"`
}

// ResolvedCart is the populated read model served by the cart detail
// endpoints and views.
type ResolvedCart struct {
	ID       primitive.ObjectID `json:"_id"`
	Products []ResolvedLineItem `json:"products"`
}
