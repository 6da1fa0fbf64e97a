package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProductStock rows are mutated only under a row-level exclusive lock;
// stock never goes below zero.
type ProductStock struct {
	ProductID uuid.UUID `json:"product_id"`
	Stock     int64     `json:"stock"`
	UpdatedAt time.Time `json:"updated_at"`
}
