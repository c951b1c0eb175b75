package generation

import "context"

// ListFilter narrows List results. An empty Sport matches every sport.
type ListFilter struct {
	Sport string
	Limit int
}

// Repository describes generation persistence needs from use cases.
type Repository interface {
	Create(ctx context.Context, g Generation) error
	Update(ctx context.Context, g Generation) error
	GetByID(ctx context.Context, id string) (Generation, bool, error)
	List(ctx context.Context, filter ListFilter) ([]Generation, error)
}
