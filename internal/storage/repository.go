package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("product not found")
	ErrConstraint = errors.New("constraint violation")
)

type Repository interface {
	// CreateProduct inserts record and fills in its ID and timestamps.
	CreateProduct(ctx context.Context, record *ProductRecord) error

	GetProduct(ctx context.Context, id int64) (*ProductRecord, error)

	ListProducts(ctx context.Context) ([]ProductRecord, error)

	Close() error
}

// ConstraintError reports a database-level constraint violation. Column is
// empty when the driver does not say which column failed.
type ConstraintError struct {
	Column string
	Err    error
}

func (e *ConstraintError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("constraint violation: %v", e.Err)
	}
	return fmt.Sprintf("constraint violation on %s: %v", e.Column, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

// Open picks a Repository for driver: "postgres", "sqlite3" (cgo) or
// "sqlite" (pure Go).
func Open(driver, dsn string) (Repository, error) {
	switch driver {
	case "postgres":
		repo, err := NewPostgresRepository(dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "sqlite3", "sqlite":
		repo, err := NewSQLiteRepository(driver, dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
