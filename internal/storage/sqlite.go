package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	msqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens dbPath with driver "sqlite3" (mattn, cgo) or
// "sqlite" (modernc, pure Go).
func NewSQLiteRepository(driver, dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; in-memory databases are per connection.
	db.SetMaxOpenConns(1)

	repo := &SQLiteRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) CreateProduct(ctx context.Context, record *ProductRecord) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO products (name, price, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(
		ctx,
		query,
		record.Name,
		record.Price,
		record.Category,
		now,
		now,
	)
	if err != nil {
		return classifySQLiteError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	record.ID = id
	record.CreatedAt = now
	record.UpdatedAt = now
	return nil
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, id int64) (*ProductRecord, error) {
	query := `
		SELECT id, name, price, category, created_at, updated_at
		FROM products
		WHERE id = ?
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

func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]ProductRecord, error) {
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

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func classifySQLiteError(err error) error {
	var mattnErr sqlite3.Error
	if errors.As(err, &mattnErr) && mattnErr.Code == sqlite3.ErrConstraint {
		return &ConstraintError{Column: constraintColumn(mattnErr.Error()), Err: err}
	}

	var moderncErr *msqlite.Error
	if errors.As(err, &moderncErr) && moderncErr.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT {
		return &ConstraintError{Column: constraintColumn(moderncErr.Error()), Err: err}
	}

	return err
}

// constraintColumn pulls the column out of messages such as
// "NOT NULL constraint failed: products.name".
func constraintColumn(msg string) string {
	const marker = "constraint failed: "
	idx := strings.LastIndex(msg, marker)
	if idx < 0 {
		return ""
	}
	after := msg[idx+len(marker):]
	after, _, _ = strings.Cut(after, ",")
	after, _, _ = strings.Cut(after, " ")
	if _, col, ok := strings.Cut(after, "."); ok {
		return strings.TrimRight(col, ")")
	}
	return ""
}
