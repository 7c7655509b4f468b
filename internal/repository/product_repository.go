package repository

import (
	"context"

	"github.com/spec-kit/returns-service/internal/domain"
)

// ProductRepository is the read-only view of the product catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type productRepository struct {
	db DBTX
}

// NewProductRepository builds repository.
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const query = `SELECT id, sku, name FROM products WHERE id=$1`
	var product domain.Product
	if err := r.db.QueryRow(ctx, query, id).Scan(&product.ID, &product.SKU, &product.Name); err != nil {
		return nil, mapNoRows(err)
	}
	return &product, nil
}
