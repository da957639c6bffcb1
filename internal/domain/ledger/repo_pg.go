package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/periop/statusboard/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const recordCols = `id, patient_id, previous_status, new_status, changed_by, changed_at`

// Append joins the caller's transaction when ctx carries one, so a failed
// append rolls back the patient write with it.
func (r *repoPG) Append(ctx context.Context, rec *TransitionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.ChangedAt = rec.ChangedAt.UTC()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO status_log (id, patient_id, previous_status, new_status, changed_by, changed_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.ID, rec.PatientID, rec.PreviousStatus, rec.NewStatus, rec.ChangedBy, rec.ChangedAt)
	return err
}

func (r *repoPG) ListAll(ctx context.Context) ([]*TransitionRecord, error) {
	return r.query(ctx, `SELECT `+recordCols+` FROM status_log`)
}

func (r *repoPG) ListInRange(ctx context.Context, start, end time.Time) ([]*TransitionRecord, error) {
	return r.query(ctx, `SELECT `+recordCols+` FROM status_log WHERE changed_at BETWEEN $1 AND $2`,
		start.UTC(), end.UTC())
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*TransitionRecord, error) {
	return r.query(ctx, `SELECT `+recordCols+` FROM status_log WHERE patient_id = $1 ORDER BY changed_at, id`,
		patientID)
}

func (r *repoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*TransitionRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*TransitionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func scanRecord(row pgx.Row) (*TransitionRecord, error) {
	var rec TransitionRecord
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.PreviousStatus, &rec.NewStatus, &rec.ChangedBy, &rec.ChangedAt)
	return &rec, err
}
