package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resource is the stored shape shared by products and books. The two
// collections carry structurally identical documents; only the
// collection name differs.
type Resource struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	Category    string             `bson:"category" json:"category"`
	Stock       int                `bson:"stock" json:"stock"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// CreateInput is the payload for creating a resource. Description and
// Stock are pointers so that an absent field is distinguishable from
// the legal empty string and zero; the rest reject their zero values
// anyway.
type CreateInput struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Description *string `json:"description" binding:"required,max=500"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Category    string  `json:"category" binding:"required"`
	Stock       *int    `json:"stock" binding:"required,gte=0"`
}

// UpdateInput is the payload for partial updates. A nil field means
// "leave unchanged"; constraints only apply to fields that are set.
type UpdateInput struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Category    *string  `json:"category" binding:"omitempty"`
	Stock       *int     `json:"stock" binding:"omitempty,gte=0"`
}

// HasChanges reports whether at least one field is set.
func (u UpdateInput) HasChanges() bool {
	return u.Name != nil || u.Description != nil || u.Price != nil ||
		u.Category != nil || u.Stock != nil
}

// NamedResource is the names-only projection used by the /names listing.
type NamedResource struct {
	Name string `bson:"name" json:"name"`
}

// PriceStats is the result of the price aggregation over a collection,
// optionally narrowed to one category.
type PriceStats struct {
	MinPrice float64 `bson:"min_price" json:"min_price"`
	MaxPrice float64 `bson:"max_price" json:"max_price"`
	AvgPrice float64 `bson:"avg_price" json:"avg_price"`
	Total    int64   `bson:"total" json:"total"`
}

// Event types published to the message queue on mutations.
const (
	EventsQueue  = "catalog.events"
	EventCreated = "resource_created"
	EventUpdated = "resource_updated"
	EventDeleted = "resource_deleted"
)

// Event describes a change to a single resource.
type Event struct {
	EventType string    `json:"event_type"`
	Resource  string    `json:"resource"`
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
