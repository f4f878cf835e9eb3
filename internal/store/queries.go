package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotInitialized is returned when the database schema has not been
// created yet. Running any pinbuild build creates it.
var ErrNotInitialized = errors.New("database not initialized: run 'pinbuild build' first")

// ErrNotFound is returned when no receipt exists for the requested package.
var ErrNotFound = errors.New("no receipt for package")

// wrapSchemaErr converts "no such table" errors into ErrNotInitialized.
func wrapSchemaErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w (%v)", ErrNotInitialized, err)
	}
	return err
}

// RecordReceipt inserts or replaces the receipt for a package. A rebuild of
// the same package replaces its previous receipt atomically.
func (s *Store) RecordReceipt(r *Receipt) error {
	binariesJSON, err := json.Marshal(r.Binaries)
	if err != nil {
		return fmt.Errorf("failed to marshal binaries: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO receipts
		(name, version, forge, owner, repo, rev, src_hash, vendor_hash, built_at, store_path, store_hash, binaries, description, license)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		r.Name,
		r.Version,
		r.Forge,
		r.Owner,
		r.Repo,
		r.Rev,
		r.SrcHash,
		r.VendorHash,
		r.BuiltAt.Format(time.RFC3339),
		r.StorePath,
		r.StoreHash,
		string(binariesJSON),
		r.Description,
		r.License,
	)
	if err != nil {
		return fmt.Errorf("failed to record receipt for %s: %w", r.Name, wrapSchemaErr(err))
	}
	return nil
}

// GetReceipt retrieves the receipt for a package by name.
func (s *Store) GetReceipt(name string) (*Receipt, error) {
	query := `
		SELECT name, version, forge, owner, repo, rev, src_hash, vendor_hash, built_at, store_path, store_hash, binaries, description, license
		FROM receipts
		WHERE name = ?
	`

	r, err := scanReceipt(s.db.QueryRow(query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt for %s: %w", name, wrapSchemaErr(err))
	}
	return r, nil
}

// ListReceipts returns all receipts sorted by name.
func (s *Store) ListReceipts() ([]*Receipt, error) {
	query := `
		SELECT name, version, forge, owner, repo, rev, src_hash, vendor_hash, built_at, store_path, store_hash, binaries, description, license
		FROM receipts
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", wrapSchemaErr(err))
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes the receipt for a package.
func (s *Store) DeleteReceipt(name string) error {
	res, err := s.db.Exec(`DELETE FROM receipts WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete receipt for %s: %w", name, wrapSchemaErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete receipt for %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// RecordEvent appends a build event to the audit history.
func (s *Store) RecordEvent(e *BuildEvent) error {
	query := `
		INSERT INTO build_events (name, version, kind, detail, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query, e.Name, e.Version, e.Kind, e.Detail, e.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record build event for %s: %w", e.Name, wrapSchemaErr(err))
	}
	return nil
}

// ListEvents returns the most recent build events for a package, newest
// first, limited to limit entries (0 means all).
func (s *Store) ListEvents(name string, limit int) ([]*BuildEvent, error) {
	query := `
		SELECT id, name, version, kind, detail, timestamp
		FROM build_events
		WHERE name = ?
		ORDER BY id DESC
	`
	args := []interface{}{name}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list build events: %w", wrapSchemaErr(err))
	}
	defer rows.Close()

	var events []*BuildEvent
	for rows.Next() {
		var e BuildEvent
		var ts string
		if err := rows.Scan(&e.ID, &e.Name, &e.Version, &e.Kind, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan build event: %w", err)
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp in build event %d: %w", e.ID, err)
		}
		e.Timestamp = t
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate build events: %w", err)
	}
	return events, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanReceipt.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReceipt(row scanner) (*Receipt, error) {
	var r Receipt
	var builtAt, binariesJSON string

	err := row.Scan(
		&r.Name,
		&r.Version,
		&r.Forge,
		&r.Owner,
		&r.Repo,
		&r.Rev,
		&r.SrcHash,
		&r.VendorHash,
		&builtAt,
		&r.StorePath,
		&r.StoreHash,
		&binariesJSON,
		&r.Description,
		&r.License,
	)
	if err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, builtAt)
	if err != nil {
		return nil, fmt.Errorf("invalid built_at for %s: %w", r.Name, err)
	}
	r.BuiltAt = t

	if err := json.Unmarshal([]byte(binariesJSON), &r.Binaries); err != nil {
		return nil, fmt.Errorf("invalid binaries column for %s: %w", r.Name, err)
	}
	return &r, nil
}
