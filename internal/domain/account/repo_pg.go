package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(_ context.Context) querier {
	return r.pool
}

// Soft-deleted patient rows are filtered in the join so they read as "no patient".
const userSelect = `SELECT
	u.id, u.role_id, u.full_name, u.telephone, u.email, u.status, u.email_verified_at, u.created_at, u.updated_at,
	r.id, r.name, r.code, r.description, r.created_at, r.updated_at,
	p.id, p.user_id, p.birth_day, p.gender, p.blood_group, p.allergies, p.chronic_diseases, p.current_medications,
	p.weight, p.height, p.insurance_number, p.deleted_at, p.created_at, p.updated_at
FROM users u
JOIN roles r ON r.id = u.role_id
LEFT JOIN patients p ON p.user_id = u.id AND p.deleted_at IS NULL`

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user get by id: %w", err)
	}
	return u, nil
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("user count: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, userSelect+` ORDER BY u.full_name, u.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("user list scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("user list: %w", err)
	}
	return users, total, nil
}

// patientRow holds the nullable columns produced by the patients left join.
type patientRow struct {
	ID                 *int64
	UserID             *int64
	BirthDay           *time.Time
	Gender             *string
	BloodGroup         *string
	Allergies          *string
	ChronicDiseases    *string
	CurrentMedications *string
	Weight             *float64
	Height             *float64
	InsuranceNumber    *string
	DeletedAt          *time.Time
	CreatedAt          *time.Time
	UpdatedAt          *time.Time
}

func (p *patientRow) toPatient() *Patient {
	if p.ID == nil {
		return nil
	}
	out := &Patient{
		ID:                 *p.ID,
		BirthDay:           dateString(p.BirthDay),
		BloodGroup:         p.BloodGroup,
		Allergies:          p.Allergies,
		ChronicDiseases:    p.ChronicDiseases,
		CurrentMedications: p.CurrentMedications,
		Weight:             p.Weight,
		Height:             p.Height,
		InsuranceNumber:    p.InsuranceNumber,
		DeletedAt:          timestampString(p.DeletedAt),
	}
	if p.UserID != nil {
		out.UserID = *p.UserID
	}
	if p.Gender != nil {
		out.Gender = Gender(*p.Gender)
	}
	if s := timestampString(p.CreatedAt); s != nil {
		out.CreatedAt = *s
	}
	if s := timestampString(p.UpdatedAt); s != nil {
		out.UpdatedAt = *s
	}
	return out
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u                        User
		role                     Role
		status                   string
		roleDescription          *string
		emailVerifiedAt          *time.Time
		createdAt, updatedAt     time.Time
		roleCreated, roleUpdated time.Time
		p                        patientRow
	)
	err := row.Scan(
		&u.ID, &u.RoleID, &u.FullName, &u.Telephone, &u.Email, &status, &emailVerifiedAt, &createdAt, &updatedAt,
		&role.ID, &role.Name, &role.Code, &roleDescription, &roleCreated, &roleUpdated,
		&p.ID, &p.UserID, &p.BirthDay, &p.Gender, &p.BloodGroup, &p.Allergies, &p.ChronicDiseases, &p.CurrentMedications,
		&p.Weight, &p.Height, &p.InsuranceNumber, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Status = Status(status)
	u.EmailVerifiedAt = timestampString(emailVerifiedAt)
	u.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	u.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	if roleDescription != nil {
		role.Description = *roleDescription
	}
	role.CreatedAt = roleCreated.UTC().Format(time.RFC3339)
	role.UpdatedAt = roleUpdated.UTC().Format(time.RFC3339)
	u.Role = &role
	u.Patient = p.toPatient()
	return &u, nil
}

func timestampString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
