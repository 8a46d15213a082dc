package catalog

import "time"

// Product is the descriptive metadata for a product code. The catalog
// registry itself is maintained elsewhere; the core only reads it.
type Product struct {
	Code        string    `json:"code" db:"code"`
	Description string    `json:"description" db:"description"`
	Unit        string    `json:"unit" db:"unit"`
	Supplier    string    `json:"supplier,omitempty" db:"supplier"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
