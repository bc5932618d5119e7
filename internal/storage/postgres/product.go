package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, description, image, category,
		list_price, sale_price, on_sale, free_shipping
		FROM products ORDER BY position, id`

	upsertProductSQL = `INSERT INTO products
		(id, position, name, description, image, category, list_price, sale_price, on_sale, free_shipping)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			category = EXCLUDED.category,
			list_price = EXCLUDED.list_price,
			sale_price = EXCLUDED.sale_price,
			on_sale = EXCLUDED.on_sale,
			free_shipping = EXCLUDED.free_shipping`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository is a catalog source backed by the products table.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products in feed order.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert writes products in one batch, keeping their slice order as the
// catalog order.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	batch := &pgx.Batch{}
	for i, p := range products {
		listPrice := decimal.NullDecimal{}
		if amount, ok := p.ListPrice.Amount(); ok {
			listPrice = decimal.NewNullDecimal(amount)
		}
		salePrice := decimal.NullDecimal{}
		if p.HasSalePrice() {
			salePrice = decimal.NewNullDecimal(p.SalePrice)
		}
		batch.Queue(upsertProductSQL,
			p.ID, i, p.Name, p.Description, p.Image, p.Category,
			listPrice, salePrice, p.OnSale, p.FreeShipping,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert products")
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p         product.Product
		listPrice decimal.NullDecimal
		salePrice decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Image, &p.Category,
		&listPrice, &salePrice, &p.OnSale, &p.FreeShipping,
	)
	if listPrice.Valid {
		p.ListPrice = product.Fixed(listPrice.Decimal)
	} else {
		p.ListPrice = product.OnRequest()
	}
	if salePrice.Valid {
		p.SalePrice = salePrice.Decimal
	}
	return p, err
}
