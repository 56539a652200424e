package checks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"eligo/internal/eligibility/models"
	"eligo/pkg/platform/sentinel"
	txcontext "eligo/pkg/platform/tx"
)

const checkColumns = `id, type, status, payload, group_id, sequence, check_hash_id, created_at, updated_at`

// PostgresStore persists checks in eligibility_checks. Writes join the
// transaction carried in ctx.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, check *models.EligibilityCheck) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO eligibility_checks (`+checkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		check.ID,
		string(check.Type),
		string(check.Status),
		string(check.Payload),
		nullUUID(check.GroupID),
		nullInt(check.Sequence),
		nullUUID(check.CheckHashID),
		check.CreatedAt,
		check.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert check %s: %w", check.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert check: %w", err)
	}
	return nil
}

// CreateBatch inserts every check in one transaction, joining the caller's if present.
func (s *PostgresStore) CreateBatch(ctx context.Context, checks []*models.EligibilityCheck) error {
	return txcontext.NewSQLManager(s.db).RunInTx(ctx, func(ctx context.Context) error {
		for _, c := range checks {
			if err := s.Create(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.EligibilityCheck, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+checkColumns+` FROM eligibility_checks WHERE id = $1`, id)
	c, err := scanCheck(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find check: %w", err)
	}
	return c, nil
}

// CompleteQueued is the conditional terminal write. Zero affected rows means
// another worker finished the check first, or it never existed.
func (s *PostgresStore) CompleteQueued(ctx context.Context, id uuid.UUID, status models.CheckStatus, checkHashID *uuid.UUID, at time.Time) error {
	exec := txcontext.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE eligibility_checks
		SET status = $2, check_hash_id = $3, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id, string(status), nullUUID(checkHashID), at, string(models.StatusQueuedForProcessing))
	if err != nil {
		return fmt.Errorf("complete check: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete check rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM eligibility_checks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, status models.CheckStatus, at time.Time) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE eligibility_checks SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), at)
	if err != nil {
		return fmt.Errorf("set check status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set check status rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, groupID uuid.UUID) ([]models.StatusCount, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM eligibility_checks
		WHERE group_id = $1
		GROUP BY status
		ORDER BY status`, groupID)
	if err != nil {
		return nil, fmt.Errorf("count checks by status: %w", err)
	}
	defer rows.Close()

	var out []models.StatusCount
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out = append(out, models.StatusCount{Status: models.CheckStatus(status), Count: count})
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.EligibilityCheck, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+checkColumns+` FROM eligibility_checks
		WHERE group_id = $1
		ORDER BY sequence, created_at`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group checks: %w", err)
	}
	defer rows.Close()

	var out []*models.EligibilityCheck
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group check: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheck(row scanner) (*models.EligibilityCheck, error) {
	var (
		c           models.EligibilityCheck
		typ, status string
		groupID     uuid.NullUUID
		sequence    sql.NullInt64
		checkHashID uuid.NullUUID
	)
	if err := row.Scan(&c.ID, &typ, &status, &c.Payload, &groupID, &sequence, &checkHashID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Type = models.CheckType(typ)
	c.Status = models.CheckStatus(status)
	if groupID.Valid {
		g := groupID.UUID
		c.GroupID = &g
	}
	if sequence.Valid {
		n := int(sequence.Int64)
		c.Sequence = &n
	}
	if checkHashID.Valid {
		h := checkHashID.UUID
		c.CheckHashID = &h
	}
	return &c, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgerrcode.UniqueViolation
}
