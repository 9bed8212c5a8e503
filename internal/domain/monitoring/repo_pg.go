package monitoring

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardiomon/api/internal/domain/scoring"
	"github.com/cardiomon/api/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const entryCols = `id, patient_id, entry_date, domain, payload, score, category, created_at, updated_at`

const upsertEntry = `
	INSERT INTO monitoring_entries (patient_id, entry_date, domain, payload, score, category)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (patient_id, entry_date, domain) DO UPDATE SET
		payload    = EXCLUDED.payload,
		score      = EXCLUDED.score,
		category   = EXCLUDED.category,
		updated_at = NOW()
	RETURNING id, created_at, updated_at`

func (r *repoPG) Upsert(ctx context.Context, e *Entry) error {
	err := r.pool.QueryRow(ctx, upsertEntry,
		e.PatientID, e.Date, string(e.Domain), []byte(e.Payload), e.Score, string(e.Category),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err == nil {
		return nil
	}
	if db.PgCode(err) == db.CodeForeignKeyViolation {
		return ErrPatientNotFound
	}
	if name := db.ConstraintName(err); name != "" {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return &PersistenceError{Op: "upsert", Err: err}
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM monitoring_entries WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, &PersistenceError{Op: "count", Err: err}
	}

	rows, err := r.pool.Query(ctx, `SELECT `+entryCols+` FROM monitoring_entries
		WHERE patient_id = $1
		ORDER BY entry_date DESC, domain
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, &PersistenceError{Op: "scan", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &PersistenceError{Op: "list", Err: err}
	}
	return entries, total, nil
}

func (r *repoPG) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT m.id, m.patient_id, m.entry_date, m.domain, m.payload, m.score, m.category,
			m.created_at, m.updated_at, p.name
		FROM monitoring_entries m
		JOIN patients p ON p.id = m.patient_id
		ORDER BY m.updated_at DESC, m.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list recent", Err: err}
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var name string
		e, err := scanEntry(rows, &name)
		if err != nil {
			return nil, &PersistenceError{Op: "scan", Err: err}
		}
		e.PatientName = name
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list recent", Err: err}
	}
	return entries, nil
}

func scanEntry(row pgx.Row, extra ...interface{}) (*Entry, error) {
	var (
		e        Entry
		domain   string
		category string
		payload  []byte
	)
	dest := append([]interface{}{&e.ID, &e.PatientID, &e.Date, &domain, &payload, &e.Score, &category, &e.CreatedAt, &e.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.Domain = Domain(domain)
	e.Category = scoring.Category(category)
	e.Payload = payload
	return &e, nil
}
