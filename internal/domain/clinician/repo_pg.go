package clinician

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
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const clinicianCols = `id, name, email, role, created_at`

func scanClinician(row pgx.Row) (*Clinician, error) {
	var c Clinician
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Role, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// prepareInsert fills the ID and creation time the caller left zero.
func prepareInsert(c *Clinician, now time.Time) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now.UTC()
	}
}

func (r *repoPG) Create(ctx context.Context, c *Clinician) error {
	prepareInsert(c, time.Now())
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinician (id, name, email, role, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.Name, c.Email, c.Role, c.CreatedAt)
	return err
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Clinician, error) {
	// Names are not unique; the oldest record wins.
	return scanClinician(r.conn(ctx).QueryRow(ctx,
		`SELECT `+clinicianCols+` FROM clinician WHERE name = $1 ORDER BY created_at LIMIT 1`, name))
}

func buildListQuery(f ListFilter) (string, []interface{}) {
	var where []string
	var args []interface{}
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("role", f.Role)
	add("email", f.Email)

	query := `SELECT ` + clinicianCols + ` FROM clinician`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	return query + ` ORDER BY name`, args
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Clinician, error) {
	query, args := buildListQuery(f)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Clinician
	for rows.Next() {
		c, err := scanClinician(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
