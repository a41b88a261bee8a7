package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const resourceCols = `id, name, type, location, status, assigned_to_patient_id, assigned_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, res *HospitalResource) error {
	res.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO hospital_resources (id, name, type, location, status, assigned_to_patient_id, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		res.ID, res.Name, res.Type, res.Location, res.Status, res.AssignedToPatientID, res.AssignedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*HospitalResource, error) {
	return scanResource(r.conn(ctx).QueryRow(ctx, `SELECT `+resourceCols+` FROM hospital_resources WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, res *HospitalResource) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE hospital_resources
		SET name = $2, type = $3, location = $4, status = $5,
			assigned_to_patient_id = $6, assigned_at = $7, updated_at = NOW()
		WHERE id = $1`,
		res.ID, res.Name, res.Type, res.Location, res.Status, res.AssignedToPatientID, res.AssignedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResourceNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM hospital_resources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResourceNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*HospitalResource, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospital_resources`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+resourceCols+` FROM hospital_resources`+where+
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var resources []*HospitalResource
	for rows.Next() {
		res, err := scanResourceRows(rows)
		if err != nil {
			return nil, 0, err
		}
		resources = append(resources, res)
	}
	return resources, total, rows.Err()
}

func scanResource(row pgx.Row) (*HospitalResource, error) {
	var res HospitalResource
	err := row.Scan(&res.ID, &res.Name, &res.Type, &res.Location, &res.Status,
		&res.AssignedToPatientID, &res.AssignedAt, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func scanResourceRows(rows pgx.Rows) (*HospitalResource, error) {
	var res HospitalResource
	err := rows.Scan(&res.ID, &res.Name, &res.Type, &res.Location, &res.Status,
		&res.AssignedToPatientID, &res.AssignedAt, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
