package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(connStr string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	repo := &PostgresRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *PostgresRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, record *ProductRecord) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO products (name, price, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		record.Name,
		record.Price,
		record.Category,
		now,
		now,
	).Scan(&record.ID)
	if err != nil {
		return classifyPostgresError(err)
	}

	record.CreatedAt = now
	record.UpdatedAt = now
	return nil
}

func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*ProductRecord, error) {
	query := `
		SELECT id, name, price, category, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var record ProductRecord
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Name,
		&record.Price,
		&record.Category,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *PostgresRepository) ListProducts(ctx context.Context) ([]ProductRecord, error) {
	query := `
		SELECT id, name, price, category, created_at, updated_at
		FROM products
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// classifyPostgresError maps integrity constraint violations (SQLSTATE class
// 23) to ConstraintError.
func classifyPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return &ConstraintError{Column: pqErr.Column, Err: err}
	}
	return err
}

func scanProducts(rows *sql.Rows) ([]ProductRecord, error) {
	var records []ProductRecord

	for rows.Next() {
		var record ProductRecord

		err := rows.Scan(
			&record.ID,
			&record.Name,
			&record.Price,
			&record.Category,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}
