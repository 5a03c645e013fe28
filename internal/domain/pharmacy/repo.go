package pharmacy

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type PrescriptionStore interface {
	Create(ctx context.Context, p *Prescription) error
	Get(ctx context.Context, id string) (*Prescription, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	Count(ctx context.Context) (int, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Order, int, error)
	Count(ctx context.Context) (int, error)
}
