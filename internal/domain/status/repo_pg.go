package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/periop/statusboard/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) ListOrdered(ctx context.Context) ([]*Definition, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT status, message, color, order_index FROM status ORDER BY order_index, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Definition
	for rows.Next() {
		var d Definition
		if err := rows.Scan(&d.Status, &d.Message, &d.Color, &d.OrderIndex); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM status`).Scan(&n)
	return n, err
}

// InsertAll writes defs with a single statement.
func (r *repoPG) InsertAll(ctx context.Context, defs []*Definition) error {
	if len(defs) == 0 {
		return nil
	}
	sql, args := insertStatusesQuery(defs)
	if _, err := r.conn(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert statuses: %w", err)
	}
	return nil
}

func insertStatusesQuery(defs []*Definition) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(`INSERT INTO status (status, message, color, order_index) VALUES `)
	args := make([]interface{}, 0, len(defs)*4)
	for i, d := range defs {
		if i > 0 {
			b.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4)
		args = append(args, d.Status, d.Message, d.Color, d.OrderIndex)
	}
	return b.String(), args
}
