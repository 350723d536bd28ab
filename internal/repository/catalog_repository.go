// Package repository contains data access logic separated from HTTP handlers.
// This file defines the taxonomy catalog model and repository. The four
// catalogs (enterprises, products, services, templates) share one table
// shape: an auto-incremented id and a name that is unique per catalog under
// the database's case-insensitive collation.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"
	"strings"
	"time"
)

// CatalogOption is one entry of a taxonomy catalog as persisted in the
// database. CreatedAt and UpdatedAt are not exposed via API responses.
type CatalogOption struct {
	ID        uint64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrCatalogNotFound is returned when a catalog entry cannot be found.
var ErrCatalogNotFound = errors.New("catalog entry not found")

// catalogTables whitelists the tables a CatalogRepo may address; the table
// name is interpolated into SQL and must never come from request input.
var catalogTables = map[string]bool{
	"enterprises": true,
	"products":    true,
	"services":    true,
	"templates":   true,
}

// CatalogRepo encapsulates the database queries of one taxonomy catalog.
// One instance is constructed per catalog table at startup.
type CatalogRepo struct {
	db    *sql.DB // db is the underlying database connection pool
	table string  // table is the whitelisted catalog table name
}

// NewCatalogRepo constructs a CatalogRepo bound to one of the known catalog
// tables. It panics on an unknown table name since that is a wiring bug,
// not a runtime condition.
func NewCatalogRepo(db *sql.DB, table string) *CatalogRepo {
	if !catalogTables[table] {
		panic("unknown catalog table: " + table)
	}
	return &CatalogRepo{db: db, table: table}
}

// List returns all entries of the catalog ordered by name.
func (r *CatalogRepo) List(ctx context.Context) ([]*CatalogOption, error) {
	q := `SELECT id, name FROM ` + r.table + ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CatalogOption
	for rows.Next() {
		o := new(CatalogOption)
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns entries whose name contains the query, case-insensitively
// under the table collation, ordered by name. An empty query lists all.
func (r *CatalogRepo) Search(ctx context.Context, query string) ([]*CatalogOption, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.List(ctx)
	}
	q := `SELECT id, name FROM ` + r.table + ` WHERE name LIKE ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CatalogOption
	for rows.Next() {
		o := new(CatalogOption)
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches one entry, returning ErrCatalogNotFound when absent.
func (r *CatalogRepo) GetByID(ctx context.Context, id uint64) (*CatalogOption, error) {
	q := `SELECT id, name, created_at, updated_at FROM ` + r.table + ` WHERE id = ?`
	var o CatalogOption
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	return &o, nil
}

// GetByName fetches one entry by case-insensitive name match.
func (r *CatalogRepo) GetByName(ctx context.Context, name string) (*CatalogOption, error) {
	q := `SELECT id, name, created_at, updated_at FROM ` + r.table + ` WHERE LOWER(name) = LOWER(?)`
	var o CatalogOption
	if err := r.db.QueryRowContext(ctx, q, strings.TrimSpace(name)).Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Create inserts a new entry. A unique-key violation surfaces as
// ErrNameExists so handlers can answer 409 with the duplicate wording
// clients rely on.
func (r *CatalogRepo) Create(ctx context.Context, o *CatalogOption) error {
	q := `INSERT INTO ` + r.table + ` (name) VALUES (?)`
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(o.Name))
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// UpdateName renames an entry. It returns sql.ErrNoRows when the entry does
// not exist and ErrNameExists when the new name collides.
func (r *CatalogRepo) UpdateName(ctx context.Context, id uint64, name string) error {
	q := `UPDATE ` + r.table + ` SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(name), id)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrNameExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either absent or a same-value update; disambiguate with a lookup.
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return sql.ErrNoRows
		}
	}
	return nil
}

// Delete removes an entry, returning sql.ErrNoRows when nothing matched.
// The in-use guard lives in the handler, which consults the account
// repository before calling here.
func (r *CatalogRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
