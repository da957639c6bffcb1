package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/periop/statusboard/internal/platform/db"
	"github.com/periop/statusboard/pkg/dates"
)

const numberConstraint = "patient_patient_number_key"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `p.id, p.patient_number, p.first_name, p.last_name, p.address, p.city, p.state,
	p.country, p.phone, p.email, p.procedure, p.scheduled_time, p.surgeon_id, c.name, p.room_no,
	p.note, p.status, p.created_at, p.updated_at`

const patientFrom = ` FROM patient p LEFT JOIN clinician c ON c.id = p.surgeon_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientNumber, &p.FirstName, &p.LastName, &p.Address, &p.City, &p.State,
		&p.Country, &p.Phone, &p.Email, &p.Procedure, &p.ScheduledTime, &p.SurgeonID, &p.SurgeonName, &p.RoomNo,
		&p.Note, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

const summaryCols = `p.patient_number, p.first_name, p.last_name, p.status, p.email, p.phone, p.room_no,
	p.procedure, p.scheduled_time, c.name, p.created_at`

func scanSummary(row pgx.Row) (*PatientSummary, error) {
	var s PatientSummary
	err := row.Scan(&s.PatientNumber, &s.FirstName, &s.LastName, &s.Status, &s.Email, &s.Phone, &s.RoomNo,
		&s.Procedure, &s.ScheduledTime, &s.SurgeonName, &s.CreatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	// The savepoint keeps a number collision from aborting the caller's
	// transaction, so the service can retry with a fresh number.
	err := db.Savepoint(ctx, r.pool, func(q db.Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO patient (id, patient_number, first_name, last_name, address, city, state, country,
				phone, email, procedure, scheduled_time, surgeon_id, room_no, note, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
			p.ID, p.PatientNumber, p.FirstName, p.LastName, p.Address, p.City, p.State, p.Country,
			p.Phone, p.Email, p.Procedure, p.ScheduledTime.UTC(), p.SurgeonID, p.RoomNo, p.Note, p.Status,
			p.CreatedAt.UTC(), p.UpdatedAt.UTC())
		return err
	})
	if db.IsUniqueViolation(err, numberConstraint) {
		return ErrNumberTaken
	}
	return err
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.patient_number = $1`, number))
}

func (r *repoPG) GetByNumberForUpdate(ctx context.Context, number string) (*Patient, error) {
	if db.TxFromContext(ctx) == nil {
		return nil, errors.New("row lock requested outside a transaction")
	}
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.patient_number = $1 FOR UPDATE OF p`, number))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET first_name=$2, last_name=$3, address=$4, city=$5, state=$6, country=$7,
			phone=$8, email=$9, procedure=$10, scheduled_time=$11, surgeon_id=$12, room_no=$13,
			note=$14, status=$15, updated_at=$16
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Address, p.City, p.State, p.Country,
		p.Phone, p.Email, p.Procedure, p.ScheduledTime.UTC(), p.SurgeonID, p.RoomNo,
		p.Note, p.Status, p.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*PatientSummary, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.summaries(ctx,
		`SELECT `+summaryCols+patientFrom+` ORDER BY p.created_at, p.patient_number LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// likePattern wraps s for a substring ILIKE, escaping the wildcard characters
// so user input only ever matches literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// buildSearchQuery ANDs together the filters that are set.
func buildSearchQuery(f SearchFilter) (string, []interface{}) {
	query := `SELECT ` + patientCols + patientFrom + ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Name != "" {
		query += fmt.Sprintf(` AND (p.first_name ILIKE $%d OR p.last_name ILIKE $%d OR (p.first_name || ' ' || p.last_name) ILIKE $%d)`,
			idx, idx, idx)
		args = append(args, likePattern(f.Name))
		idx++
	}
	if f.Status != "" {
		query += fmt.Sprintf(` AND p.status ILIKE $%d`, idx)
		args = append(args, likePattern(f.Status))
		idx++
	}
	if f.ScheduledDate != nil {
		query += fmt.Sprintf(` AND p.scheduled_time::date = $%d::date`, idx)
		args = append(args, f.ScheduledDate.UTC().Format(dates.DayLayout))
		idx++
	}
	if f.SurgeonName != "" {
		query += fmt.Sprintf(` AND c.name ILIKE $%d`, idx)
		args = append(args, likePattern(f.SurgeonName))
	}
	return query + ` ORDER BY p.scheduled_time, p.patient_number`, args
}

func (r *repoPG) Search(ctx context.Context, f SearchFilter) ([]*Patient, error) {
	query, args := buildSearchQuery(f)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) CountStats(ctx context.Context, terminalStatus string, dayStart, dayEnd time.Time) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status <> $1),
			COUNT(*) FILTER (WHERE scheduled_time BETWEEN $2 AND $3)
		FROM patient`,
		terminalStatus, dayStart.UTC(), dayEnd.UTC()).Scan(&s.Total, &s.Active, &s.ScheduledToday)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) ListScheduledBetween(ctx context.Context, start, end time.Time) ([]*PatientSummary, error) {
	return r.summaries(ctx,
		`SELECT `+summaryCols+patientFrom+` WHERE p.scheduled_time BETWEEN $1 AND $2 ORDER BY p.scheduled_time, p.patient_number`,
		start.UTC(), end.UTC())
}

func (r *repoPG) summaries(ctx context.Context, sql string, args ...interface{}) ([]*PatientSummary, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*PatientSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE created_at BETWEEN $1 AND $2`,
		start.UTC(), end.UTC()).Scan(&n)
	return n, err
}

func (r *repoPG) CountActiveCreatedBetween(ctx context.Context, terminalStatus string, start, end time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE status <> $1 AND created_at BETWEEN $2 AND $3`,
		terminalStatus, start.UTC(), end.UTC()).Scan(&n)
	return n, err
}

func (r *repoPG) ListActiveNumbers(ctx context.Context, terminalStatus string, createdBefore time.Time) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT patient_number FROM patient WHERE status <> $1 AND created_at <= $2 ORDER BY created_at, patient_number`,
		terminalStatus, createdBefore.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (r *repoPG) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM patient GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *repoPG) ListIdentities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Identity, error) {
	out := make(map[uuid.UUID]Identity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, patient_number, first_name, last_name FROM patient WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id Identity
		if err := rows.Scan(&id.ID, &id.PatientNumber, &id.FirstName, &id.LastName); err != nil {
			return nil, err
		}
		out[id.ID] = id
	}
	return out, rows.Err()
}
