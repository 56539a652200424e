package checkhashes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eligo/internal/eligibility/models"
	"eligo/pkg/platform/sentinel"
	txcontext "eligo/pkg/platform/tx"
)

// PostgresStore writes through the transaction carried in ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, entry *models.CheckHash) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO check_hashes (id, hash, type, outcome, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Hash, string(entry.Type), string(entry.Outcome), string(entry.Source), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert check hash: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindFresh(ctx context.Context, hash string, since time.Time) (*models.CheckHash, error) {
	var (
		e                    models.CheckHash
		typ, outcome, source string
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, hash, type, outcome, source, created_at
		FROM check_hashes
		WHERE hash = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1`, hash, since).
		Scan(&e.ID, &e.Hash, &typ, &outcome, &source, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find check hash: %w", err)
	}
	e.Type = models.CheckType(typ)
	e.Outcome = models.CheckStatus(outcome)
	e.Source = models.Source(source)
	return &e, nil
}
