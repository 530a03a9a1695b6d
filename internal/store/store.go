// Package store persists computed metric records to a local database so
// results can be listed and re-served without recomputation.
package store

import (
	"context"
	"time"
)

// Result is one persisted metric computation.
type Result struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Input     string    `json:"input"`
	Record    string    `json:"record"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows List queries.
type Filter struct {
	Slug   string
	Limit  int
	Offset int
}

// Store persists metric results.
type Store interface {
	Migrate(ctx context.Context) error
	Save(ctx context.Context, slug, input string, record any) (*Result, error)
	Get(ctx context.Context, id string) (*Result, error)
	List(ctx context.Context, filter Filter) ([]Result, error)
	Close() error
}
