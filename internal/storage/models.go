package storage

import (
	"time"

	"github.com/hperssn/productwizard/internal/domain"
)

type ProductRecord struct {
	ID        int64
	Name      string
	Price     string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromDomainProduct converts a domain.Product to a ProductRecord
func FromDomainProduct(p domain.Product) *ProductRecord {
	return &ProductRecord{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Category:  p.Category,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r *ProductRecord) ToDomain() domain.Product {
	return domain.Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Category:  r.Category,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
