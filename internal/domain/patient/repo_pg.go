package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/phi"
)

type repoPG struct {
	pool *pgxpool.Pool
	enc  *phi.Encryptor
}

// NewRepo creates a patient repository. The encryptor protects the
// contact fields at rest; pass nil to store them in the clear.
func NewRepo(pool *pgxpool.Pool, enc *phi.Encryptor) Repository {
	return &repoPG{pool: pool, enc: enc}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, first_name, last_name, date_of_birth, gender,
	phone, email, address, emergency_contact, is_active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	enc, err := r.encryptContact(p)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, date_of_birth, gender,
			phone, email, address, emergency_contact, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		enc.phone, enc.email, enc.address, enc.emergencyContact, p.IsActive,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.decryptContact(p); err != nil {
		return nil, fmt.Errorf("patient get: %w", err)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	enc, err := r.encryptContact(p)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients
		SET first_name = $2, last_name = $3, date_of_birth = $4, gender = $5,
			phone = $6, email = $7, address = $8, emergency_contact = $9,
			is_active = $10, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		enc.phone, enc.email, enc.address, enc.emergencyContact, p.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, params SearchParams, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if params.Name != "" {
		args = append(args, "%"+params.Name+"%")
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d)`, len(args), len(args))
	}
	if params.Active != nil {
		args = append(args, *params.Active)
		where += fmt.Sprintf(` AND is_active = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients`+where+
		fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		if err := r.decryptContact(p); err != nil {
			return nil, 0, fmt.Errorf("patient list: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

type encryptedContact struct {
	phone, email, address, emergencyContact *string
}

func (r *repoPG) encryptContact(p *Patient) (encryptedContact, error) {
	if r.enc == nil {
		return encryptedContact{p.Phone, p.Email, p.Address, p.EmergencyContact}, nil
	}
	var (
		out encryptedContact
		err error
	)
	if out.phone, err = r.enc.EncryptOptional(p.Phone); err != nil {
		return out, err
	}
	if out.email, err = r.enc.EncryptOptional(p.Email); err != nil {
		return out, err
	}
	if out.address, err = r.enc.EncryptOptional(p.Address); err != nil {
		return out, err
	}
	if out.emergencyContact, err = r.enc.EncryptOptional(p.EmergencyContact); err != nil {
		return out, err
	}
	return out, nil
}

func (r *repoPG) decryptContact(p *Patient) error {
	if r.enc == nil {
		return nil
	}
	var err error
	if p.Phone, err = r.enc.DecryptOptional(p.Phone); err != nil {
		return err
	}
	if p.Email, err = r.enc.DecryptOptional(p.Email); err != nil {
		return err
	}
	if p.Address, err = r.enc.DecryptOptional(p.Address); err != nil {
		return err
	}
	if p.EmergencyContact, err = r.enc.DecryptOptional(p.EmergencyContact); err != nil {
		return err
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.Phone, &p.Email, &p.Address, &p.EmergencyContact, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRows(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.Phone, &p.Email, &p.Address, &p.EmergencyContact, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
