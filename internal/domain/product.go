package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Product is a catalog record. The identifier is assigned by the store and
// never changes; a wholesale replace strips any _id from the payload first.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Code        string             `bson:"code" json:"code"`
	Price       float64            `bson:"price" json:"price"`
	Status      bool               `bson:"status" json:"status"`
	Stock       int                `bson:"stock" json:"stock"`
	Category    string             `bson:"category" json:"category"`
	Thumbnails  []string           `bson:"thumbnails" json:"thumbnails"`
}
