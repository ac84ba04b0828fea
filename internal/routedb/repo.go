package routedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/routetree/internal/apperr"
	"github.com/starford/routetree/internal/models"
)

// Insert stores a committed route with its assigned id.
func (db *DB) Insert(ctx context.Context, r models.Route) error {
	var parent sql.NullInt64
	if r.ParentID != nil {
		parent = sql.NullInt64{Int64: *r.ParentID, Valid: true}
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO routes (id, code, parent_id, position, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.Code, parent, string(r.Position), r.Duration, r.CreatedAt.UTC())
	if err != nil {
		var sqErr sqlite3.Error
		if errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("routedb: insert route %d: %w: %v", r.ID, apperr.ErrConflict, err)
		}
		return fmt.Errorf("routedb: insert route %d: %w", r.ID, err)
	}
	return nil
}

// Get returns the stored route with the given id.
func (db *DB) Get(ctx context.Context, id int64) (*models.Route, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, code, parent_id, position, duration, created_at
		FROM routes WHERE id = ?
	`, id)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("routedb: route %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("routedb: get route %d: %w", id, err)
	}
	return r, nil
}

// All returns every stored route ordered by id, which is creation order.
func (db *DB) All(ctx context.Context) ([]models.Route, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, code, parent_id, position, duration, created_at
		FROM routes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("routedb: list routes: %w", err)
	}
	defer rows.Close()

	var out []models.Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("routedb: scan route: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Count returns the number of stored routes.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM routes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("routedb: count: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoute(s scanner) (*models.Route, error) {
	var (
		r         models.Route
		parent    sql.NullInt64
		position  string
		createdAt time.Time
	)
	if err := s.Scan(&r.ID, &r.Code, &parent, &position, &r.Duration, &createdAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.Int64
		r.ParentID = &p
	}
	r.Position = models.Position(position)
	r.CreatedAt = createdAt.UTC()
	return &r, nil
}
