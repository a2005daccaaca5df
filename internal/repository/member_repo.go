package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"activation-api/internal/domain"
)

// MemberRepository define el contrato de persistencia para miembros.
type MemberRepository interface {
	Create(ctx context.Context, member domain.Member) error
	GetByUniqueID(ctx context.Context, uniqueID string) (domain.Member, error)
	UpdateOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	SetPassword(ctx context.Context, id, passwordHash string) error
}

// MemberSummary es la vista reducida usada por el diagnóstico de base de datos.
type MemberSummary struct {
	UniqueID     string `json:"uniqueId"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	IsRegistered bool   `json:"isRegistered"`
}

// Column describe una columna de la tabla members.
type Column struct {
	Name       string `json:"column_name"`
	DataType   string `json:"data_type"`
	IsNullable string `json:"is_nullable"`
}

// StoreDiagnostics expone las consultas de inspección detrás de GET /db-status.
type StoreDiagnostics interface {
	TableExists(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int64, error)
	Sample(ctx context.Context, limit int) ([]MemberSummary, error)
	Columns(ctx context.Context) ([]Column, error)
}

// PgMemberRepository implementa MemberRepository usando pgxpool.
type PgMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgMemberRepository(pool *pgxpool.Pool) *PgMemberRepository {
	return &PgMemberRepository{pool: pool}
}

func (r *PgMemberRepository) Create(ctx context.Context, member domain.Member) error {
	const query = `
		INSERT INTO members (id, unique_id, full_name, email, is_registered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		member.ID,
		member.UniqueID,
		member.FullName,
		member.Email,
		member.IsRegistered,
		member.CreatedAt,
	)
	return err
}

func (r *PgMemberRepository) GetByUniqueID(ctx context.Context, uniqueID string) (domain.Member, error) {
	const query = `
		SELECT id, unique_id, full_name, email,
		       COALESCE(password_hash, ''), is_registered,
		       COALESCE(otp_code, ''), otp_expires_at, created_at
		FROM members
		WHERE unique_id = $1
	`
	var m domain.Member
	err := r.pool.QueryRow(ctx, query, uniqueID).Scan(
		&m.ID,
		&m.UniqueID,
		&m.FullName,
		&m.Email,
		&m.PasswordHash,
		&m.IsRegistered,
		&m.OTPCode,
		&m.OTPExpiresAt,
		&m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Member{}, err
	}
	return m, err
}

// UpdateOTP persiste un código recién emitido. Sobrescribe cualquier código
// anterior: a lo sumo un OTP vivo por registro.
func (r *PgMemberRepository) UpdateOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	const query = `
		UPDATE members
		SET otp_code = $2, otp_expires_at = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, code, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetPassword fija el hash, marca el registro como activado y retira el OTP
// en un solo UPDATE. Es el único punto donde el par OTP se limpia.
func (r *PgMemberRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE members
		SET password_hash = $2, is_registered = TRUE,
		    otp_code = NULL, otp_expires_at = NULL
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgMemberRepository) TableExists(ctx context.Context) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'members'
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query).Scan(&exists)
	return exists, err
}

func (r *PgMemberRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&count)
	return count, err
}

func (r *PgMemberRepository) Sample(ctx context.Context, limit int) ([]MemberSummary, error) {
	const query = `
		SELECT unique_id, full_name, email, is_registered
		FROM members
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]MemberSummary, 0, limit)
	for rows.Next() {
		var s MemberSummary
		if err := rows.Scan(&s.UniqueID, &s.FullName, &s.Email, &s.IsRegistered); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *PgMemberRepository) Columns(ctx context.Context) ([]Column, error) {
	const query = `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = 'members'
		ORDER BY ordinal_position
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.IsNullable); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
