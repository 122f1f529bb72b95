package cdr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors surfaced by the Store.
var (
	// ErrDuplicateCallID is returned on insert when the call_id already
	// exists. Uniqueness is enforced by the database, so two concurrent
	// inserts of the same call_id yield exactly one success.
	ErrDuplicateCallID = errors.New("call record already exists")
	ErrNotFound        = errors.New("call record not found")
)

// Store provides database operations for call records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// recordColumns is the full list of columns used in SELECT statements.
const recordColumns = `id, call_id, caller_number, called_number, start_time, end_time,
	duration_seconds, carrier_id, call_type, country_code, country_name,
	caller_prefix, called_prefix, cost, revenue, profit_margin,
	duration_minutes, rate_per_minute, ingested_at`

// scanRecord scans a single row into a Record.
func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.ID,
		&r.CallID,
		&r.CallerNumber,
		&r.CalledNumber,
		&r.StartTime,
		&r.EndTime,
		&r.DurationSeconds,
		&r.CarrierID,
		&r.CallType,
		&r.CountryCode,
		&r.CountryName,
		&r.CallerPrefix,
		&r.CalledPrefix,
		&r.Cost,
		&r.Revenue,
		&r.ProfitMargin,
		&r.DurationMinutes,
		&r.RatePerMinute,
		&r.IngestedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Insert writes a rated record and returns the stored row. It returns
// ErrDuplicateCallID when a record with the same call_id already exists;
// existing data is never touched.
func (s *Store) Insert(ctx context.Context, rec *Record) (*Record, error) {
	query := fmt.Sprintf(`INSERT INTO call_records
		(call_id, caller_number, called_number, start_time, end_time,
		 duration_seconds, carrier_id, call_type, country_code, country_name,
		 caller_prefix, called_prefix, cost, revenue, profit_margin,
		 duration_minutes, rate_per_minute, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING %s`, recordColumns)

	row := s.pool.QueryRow(ctx, query,
		rec.CallID,
		rec.CallerNumber,
		rec.CalledNumber,
		rec.StartTime,
		rec.EndTime,
		rec.DurationSeconds,
		rec.CarrierID,
		rec.CallType,
		rec.CountryCode,
		rec.CountryName,
		rec.CallerPrefix,
		rec.CalledPrefix,
		rec.Cost,
		rec.Revenue,
		rec.ProfitMargin,
		rec.DurationMinutes,
		rec.RatePerMinute,
		rec.IngestedAt,
	)

	stored, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("call_id %s: %w", rec.CallID, ErrDuplicateCallID)
		}
		return nil, fmt.Errorf("inserting call record: %w", err)
	}
	return stored, nil
}

// List returns a page of records matching the filters, ordered by
// ingested_at DESC, id DESC.
func (s *Store) List(ctx context.Context, params ListParams) ([]*Record, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := buildWhereClause(params)

	query := fmt.Sprintf(`SELECT %s FROM call_records`, recordColumns) + where +
		` ORDER BY ingested_at DESC, id DESC` +
		` LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing call records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// GetByCallID retrieves a single record, returning ErrNotFound when the
// call_id does not exist.
func (s *Store) GetByCallID(ctx context.Context, callID string) (*Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM call_records WHERE call_id = $1`, recordColumns)
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, callID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("call_id %s: %w", callID, ErrNotFound)
		}
		return nil, fmt.Errorf("getting call record: %w", err)
	}
	return rec, nil
}

// Delete removes a record by call_id, returning ErrNotFound when no such
// record exists.
func (s *Store) Delete(ctx context.Context, callID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM call_records WHERE call_id = $1`, callID)
	if err != nil {
		return fmt.Errorf("deleting call record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("call_id %s: %w", callID, ErrNotFound)
	}
	return nil
}

// ListAll returns every record ordered by ingested_at DESC. It feeds the
// aggregation engine and the exporter, which always reduce the full set.
func (s *Store) ListAll(ctx context.Context) ([]*Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM call_records ORDER BY ingested_at DESC, id DESC`, recordColumns)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing all call records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM call_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting call records: %w", err)
	}
	return n, nil
}

func collectRecords(rows pgx.Rows) ([]*Record, error) {
	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning call record row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating call record rows: %w", err)
	}
	return recs, nil
}

// buildWhereClause constructs a WHERE clause and positional arguments from
// ListParams. The returned string starts with " WHERE" or is empty.
func buildWhereClause(params ListParams) (string, []any) {
	var conditions []string
	var args []any

	if params.CarrierID != "" {
		args = append(args, params.CarrierID)
		conditions = append(conditions, fmt.Sprintf("carrier_id = $%d", len(args)))
	}
	if params.CountryCode != "" {
		args = append(args, params.CountryCode)
		conditions = append(conditions, fmt.Sprintf("country_code = $%d", len(args)))
	}
	if params.CallType != "" {
		args = append(args, params.CallType)
		conditions = append(conditions, fmt.Sprintf("call_type = $%d", len(args)))
	}
	if !params.StartDate.IsZero() {
		args = append(args, params.StartDate)
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if !params.EndDate.IsZero() {
		args = append(args, params.EndDate)
		conditions = append(conditions, fmt.Sprintf("start_time <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}
