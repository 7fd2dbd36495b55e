package contactinfra

import (
	"context"
	"database/sql"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/digpatho/crm-backend/pkg/contact"
)

// PostgresContactRepository es la implementación en PostgreSQL de
// contact.Repository.
type PostgresContactRepository struct {
	db *sqlx.DB
}

// NewPostgresContactRepository crea una nueva instancia del repositorio.
func NewPostgresContactRepository(db *sqlx.DB) contact.Repository {
	return &PostgresContactRepository{db: db}
}

// Save inserta o actualiza un contacto.
func (r *PostgresContactRepository) Save(ctx context.Context, c *contact.Contact) error {
	query := `
		INSERT INTO contacts (
			id, first_name, last_name, email, phone, job_title, role,
			interest_level, institution_id, linkedin_url, ai_context, tags,
			source, interaction_count, last_interaction_at, created_at, updated_at
		) VALUES (
			:id, :first_name, :last_name, :email, :phone, :job_title, :role,
			:interest_level, :institution_id, :linkedin_url, :ai_context, :tags,
			:source, :interaction_count, :last_interaction_at, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			job_title = EXCLUDED.job_title,
			role = EXCLUDED.role,
			interest_level = EXCLUDED.interest_level,
			institution_id = EXCLUDED.institution_id,
			linkedin_url = EXCLUDED.linkedin_url,
			ai_context = EXCLUDED.ai_context,
			tags = EXCLUDED.tags,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation on email
			return contact.ErrDuplicateEmail().WithDetail("email", c.Email)
		}
		return errx.Wrap(err, "failed to save contact", errx.TypeInternal).
			WithDetail("contact_id", c.ID)
	}
	return nil
}

// Get busca un contacto por su ID.
func (r *PostgresContactRepository) Get(ctx context.Context, id string) (*contact.Contact, error) {
	var c contact.Contact
	query := `SELECT * FROM contacts WHERE id = $1`
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, contact.ErrContactNotFound()
		}
		return nil, errx.Wrap(err, "failed to find contact by ID", errx.TypeInternal)
	}
	return &c, nil
}

// FindByEmail busca un contacto por su email normalizado.
func (r *PostgresContactRepository) FindByEmail(ctx context.Context, email string) (*contact.Contact, error) {
	var c contact.Contact
	query := `SELECT * FROM contacts WHERE LOWER(email) = LOWER($1)`
	err := r.db.GetContext(ctx, &c, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, contact.ErrContactNotFound()
		}
		return nil, errx.Wrap(err, "failed to find contact by email", errx.TypeInternal)
	}
	return &c, nil
}

// List devuelve los contactos paginados, los más recientes primero.
func (r *PostgresContactRepository) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[contact.Contact], error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM contacts`); err != nil {
		return kernel.Paginated[contact.Contact]{}, errx.Wrap(err, "failed to count contacts", errx.TypeInternal)
	}

	var items []contact.Contact
	query := `SELECT * FROM contacts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	offset := (opts.Page - 1) * opts.PageSize
	if err := r.db.SelectContext(ctx, &items, query, opts.PageSize, offset); err != nil {
		return kernel.Paginated[contact.Contact]{}, errx.Wrap(err, "failed to list contacts", errx.TypeInternal)
	}

	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}

// Search filtra por nombre, email o institución.
func (r *PostgresContactRepository) Search(ctx context.Context, query string, opts kernel.PaginationOptions) (kernel.Paginated[contact.Contact], error) {
	pattern := "%" + query + "%"

	var total int
	countQuery := `
		SELECT COUNT(*) FROM contacts
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1`
	if err := r.db.GetContext(ctx, &total, countQuery, pattern); err != nil {
		return kernel.Paginated[contact.Contact]{}, errx.Wrap(err, "failed to count contact search", errx.TypeInternal)
	}

	var items []contact.Contact
	searchQuery := `
		SELECT * FROM contacts
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	offset := (opts.Page - 1) * opts.PageSize
	if err := r.db.SelectContext(ctx, &items, searchQuery, pattern, opts.PageSize, offset); err != nil {
		return kernel.Paginated[contact.Contact]{}, errx.Wrap(err, "failed to search contacts", errx.TypeInternal)
	}

	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}

// Delete elimina un contacto.
func (r *PostgresContactRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return errx.Wrap(err, "failed to delete contact", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return contact.ErrContactNotFound()
	}
	return nil
}

// PostgresInteractionRepository es la implementación en PostgreSQL de
// contact.InteractionRepository.
type PostgresInteractionRepository struct {
	db *sqlx.DB
}

// NewPostgresInteractionRepository crea una nueva instancia del repositorio.
func NewPostgresInteractionRepository(db *sqlx.DB) contact.InteractionRepository {
	return &PostgresInteractionRepository{db: db}
}

// Create inserta una interacción y actualiza los agregados del contacto.
func (r *PostgresInteractionRepository) Create(ctx context.Context, i *contact.Interaction) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin interaction transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO interactions (
			id, contact_id, type, subject, content, direction, occurred_at,
			email_draft_id, created_by, thread_id, gmail_id, created_at
		) VALUES (
			:id, :contact_id, :type, :subject, :content, :direction, :occurred_at,
			:email_draft_id, :created_by, :thread_id, :gmail_id, :created_at
		)`
	if _, err := tx.NamedExecContext(ctx, query, i); err != nil {
		return errx.Wrap(err, "failed to create interaction", errx.TypeInternal).
			WithDetail("contact_id", i.ContactID)
	}

	counterQuery := `
		UPDATE contacts SET
			interaction_count = interaction_count + 1,
			last_interaction_at = $2
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, counterQuery, i.ContactID, i.OccurredAt); err != nil {
		return errx.Wrap(err, "failed to bump contact interaction counters", errx.TypeInternal).
			WithDetail("contact_id", i.ContactID)
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit interaction transaction", errx.TypeInternal)
	}
	return nil
}

// ListByContact devuelve la línea de tiempo de un contacto, paginada.
func (r *PostgresInteractionRepository) ListByContact(ctx context.Context, contactID string, opts kernel.PaginationOptions) (kernel.Paginated[contact.Interaction], error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM interactions WHERE contact_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, contactID); err != nil {
		return kernel.Paginated[contact.Interaction]{}, errx.Wrap(err, "failed to count interactions", errx.TypeInternal)
	}

	var items []contact.Interaction
	query := `
		SELECT * FROM interactions
		WHERE contact_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3`
	offset := (opts.Page - 1) * opts.PageSize
	if err := r.db.SelectContext(ctx, &items, query, contactID, opts.PageSize, offset); err != nil {
		return kernel.Paginated[contact.Interaction]{}, errx.Wrap(err, "failed to list interactions", errx.TypeInternal)
	}

	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}
