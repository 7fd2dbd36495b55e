package operatorinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/digpatho/crm-backend/pkg/operator"
	"github.com/jmoiron/sqlx"
)

// PostgresProfileRepository es la implementación en PostgreSQL de ProfileRepository.
type PostgresProfileRepository struct {
	db *sqlx.DB
}

// NewPostgresProfileRepository crea una nueva instancia del repositorio.
func NewPostgresProfileRepository(db *sqlx.DB) operator.ProfileRepository {
	return &PostgresProfileRepository{db: db}
}

func (r *PostgresProfileRepository) Get(ctx context.Context, id string) (*operator.Profile, error) {
	var p operator.Profile
	query := `SELECT * FROM user_profiles WHERE id = $1`
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, operator.ErrProfileNotFound().WithDetail("operator_id", id)
		}
		return nil, errx.Wrap(err, "failed to load operator profile", errx.TypeInternal)
	}
	return &p, nil
}

func (r *PostgresProfileRepository) Update(ctx context.Context, p *operator.Profile) error {
	query := `
		UPDATE user_profiles SET
			full_name = :full_name,
			email_signature = :email_signature,
			updated_at = NOW()
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return errx.Wrap(err, "failed to update operator profile", errx.TypeInternal).
			WithDetail("operator_id", p.ID)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return operator.ErrProfileNotFound().WithDetail("operator_id", p.ID)
	}
	return nil
}

// SaveGoogleGrant guarda el grant inicial (access + refresh) del callback OAuth.
func (r *PostgresProfileRepository) SaveGoogleGrant(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE user_profiles SET
			google_access_token = $2,
			google_refresh_token = $3,
			google_token_expires_at = $4,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		return errx.Wrap(err, "failed to save Google grant", errx.TypeInternal).
			WithDetail("operator_id", id)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on grant save", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return operator.ErrProfileNotFound().WithDetail("operator_id", id)
	}
	return nil
}

// SaveGoogleTokens persiste un access token refrescado. Last write wins.
func (r *PostgresProfileRepository) SaveGoogleTokens(ctx context.Context, id, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE user_profiles SET
			google_access_token = $2,
			google_token_expires_at = $3,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, accessToken, expiresAt)
	if err != nil {
		return errx.Wrap(err, "failed to save refreshed Google token", errx.TypeInternal).
			WithDetail("operator_id", id)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on token save", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return operator.ErrProfileNotFound().WithDetail("operator_id", id)
	}
	return nil
}
