package catalog

import "context"

// Repository defines read access to the product catalog.
type Repository interface {
	// GetByCode retrieves one product's metadata.
	GetByCode(ctx context.Context, code string) (*Product, error)

	// Search returns active products whose code or description matches the term.
	Search(ctx context.Context, term string, limit int) ([]*Product, error)
}
