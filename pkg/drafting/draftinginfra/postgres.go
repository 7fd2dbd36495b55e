package draftinginfra

import (
	"context"
	"database/sql"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/jmoiron/sqlx"

	"github.com/digpatho/crm-backend/pkg/drafting"
)

// PostgresDraftRepository es la implementación en PostgreSQL de
// drafting.Repository.
type PostgresDraftRepository struct {
	db *sqlx.DB
}

// NewPostgresDraftRepository crea una nueva instancia del repositorio.
func NewPostgresDraftRepository(db *sqlx.DB) drafting.Repository {
	return &PostgresDraftRepository{db: db}
}

// Save inserta o actualiza un borrador.
func (r *PostgresDraftRepository) Save(ctx context.Context, d *drafting.Draft) error {
	query := `
		INSERT INTO email_drafts (
			id, contact_id, subject, body, edited_body, notes, status,
			ai_model, sent_at, sent_by, edited_at, created_at
		) VALUES (
			:id, :contact_id, :subject, :body, :edited_body, :notes, :status,
			:ai_model, :sent_at, :sent_by, :edited_at, :created_at
		)
		ON CONFLICT (id) DO UPDATE SET
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			edited_body = EXCLUDED.edited_body,
			notes = EXCLUDED.notes,
			status = EXCLUDED.status,
			sent_at = EXCLUDED.sent_at,
			sent_by = EXCLUDED.sent_by,
			edited_at = EXCLUDED.edited_at`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return errx.Wrap(err, "failed to save email draft", errx.TypeInternal).
			WithDetail("draft_id", d.ID)
	}
	return nil
}

// Get busca un borrador por su ID.
func (r *PostgresDraftRepository) Get(ctx context.Context, id string) (*drafting.Draft, error) {
	var d drafting.Draft
	err := r.db.GetContext(ctx, &d, `SELECT * FROM email_drafts WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, drafting.ErrDraftNotFound()
		}
		return nil, errx.Wrap(err, "failed to find email draft by ID", errx.TypeInternal)
	}
	return &d, nil
}

// ListByContact devuelve los borradores de un contacto, paginados.
func (r *PostgresDraftRepository) ListByContact(ctx context.Context, contactID string, opts kernel.PaginationOptions) (kernel.Paginated[drafting.Draft], error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM email_drafts WHERE contact_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, contactID); err != nil {
		return kernel.Paginated[drafting.Draft]{}, errx.Wrap(err, "failed to count email drafts", errx.TypeInternal)
	}

	var items []drafting.Draft
	query := `
		SELECT * FROM email_drafts
		WHERE contact_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	offset := (opts.Page - 1) * opts.PageSize
	if err := r.db.SelectContext(ctx, &items, query, contactID, opts.PageSize, offset); err != nil {
		return kernel.Paginated[drafting.Draft]{}, errx.Wrap(err, "failed to list email drafts", errx.TypeInternal)
	}

	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}

// Delete elimina un borrador.
func (r *PostgresDraftRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM email_drafts WHERE id = $1`, id)
	if err != nil {
		return errx.Wrap(err, "failed to delete email draft", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return drafting.ErrDraftNotFound()
	}
	return nil
}
