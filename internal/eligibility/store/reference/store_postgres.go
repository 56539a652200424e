package reference

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresStore reads the extract tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) TaxAuthoritySurnames(ctx context.Context, nino, dob string) ([]string, error) {
	return s.surnames(ctx,
		`SELECT surname FROM tax_authority_extract WHERE nino = $1 AND date_of_birth = $2::date`,
		strings.ToUpper(nino), dob)
}

func (s *PostgresStore) ImmigrationSurnames(ctx context.Context, nass, dob string) ([]string, error) {
	return s.surnames(ctx,
		`SELECT surname FROM immigration_extract WHERE nass = $1 AND date_of_birth = $2::date`,
		nass, dob)
}

func (s *PostgresStore) surnames(ctx context.Context, query, ref, dob string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, ref, dob)
	if err != nil {
		return nil, fmt.Errorf("query extract: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var surname string
		if err := rows.Scan(&surname); err != nil {
			return nil, fmt.Errorf("scan extract row: %w", err)
		}
		out = append(out, surname)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extract rows: %w", err)
	}
	return out, nil
}

// InsertTaxAuthority adds a tax-authority extract row. Used by seeding and tests.
func (s *PostgresStore) InsertTaxAuthority(ctx context.Context, nino, dob, surname string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tax_authority_extract (nino, date_of_birth, surname) VALUES ($1, $2::date, $3)`,
		strings.ToUpper(nino), dob, surname)
	if err != nil {
		return fmt.Errorf("insert tax authority extract: %w", err)
	}
	return nil
}

// InsertImmigration adds an immigration extract row. Used by seeding and tests.
func (s *PostgresStore) InsertImmigration(ctx context.Context, nass, dob, surname string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO immigration_extract (nass, date_of_birth, surname) VALUES ($1, $2::date, $3)`,
		nass, dob, surname)
	if err != nil {
		return fmt.Errorf("insert immigration extract: %w", err)
	}
	return nil
}
