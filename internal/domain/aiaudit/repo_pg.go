package aiaudit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrubnote/scrubnote/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const auditCols = `id, actor, actor_role, patient_id, module, action, model,
	input_excerpt, output_excerpt, duration_ms, outcome, error_detail,
	recorded, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.Actor, &rec.ActorRole, &rec.PatientID, &rec.Module, &rec.Action, &rec.Model,
		&rec.InputExcerpt, &rec.OutputExcerpt, &rec.DurationMs, &rec.Outcome, &rec.ErrorDetail,
		&rec.Recorded, &rec.CreatedAt,
	)
	return &rec, err
}

func (r *RepoPG) Insert(ctx context.Context, rec *Record) error {
	const q = `
		INSERT INTO ai_summary_audit (
			actor, actor_role, patient_id, module, action, model,
			input_excerpt, output_excerpt, duration_ms, outcome, error_detail, recorded
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at`

	return r.conn(ctx).QueryRow(ctx, q,
		rec.Actor, rec.ActorRole, rec.PatientID, rec.Module, rec.Action, rec.Model,
		rec.InputExcerpt, rec.OutputExcerpt, rec.DurationMs, rec.Outcome, rec.ErrorDetail, rec.Recorded,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	q := fmt.Sprintf("SELECT %s FROM ai_summary_audit WHERE id = $1", auditCols)
	return scanRecord(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if v, ok := params["actor"]; ok {
		where = append(where, fmt.Sprintf("actor = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["action"]; ok {
		where = append(where, fmt.Sprintf("action = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["outcome"]; ok {
		where = append(where, fmt.Sprintf("outcome = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["patient"]; ok {
		where = append(where, fmt.Sprintf("patient_id = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v, ok := params["model"]; ok {
		where = append(where, fmt.Sprintf("model = $%d", idx))
		args = append(args, v)
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM ai_summary_audit %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM ai_summary_audit %s ORDER BY recorded DESC LIMIT $%d OFFSET $%d",
		auditCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, nil
}
