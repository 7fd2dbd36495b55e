package campaigninfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/jmoiron/sqlx"

	"github.com/digpatho/crm-backend/pkg/campaign"
)

// PostgresCampaignRepository es la implementación en PostgreSQL de
// campaign.Repository.
type PostgresCampaignRepository struct {
	db *sqlx.DB
}

// NewPostgresCampaignRepository crea una nueva instancia del repositorio.
func NewPostgresCampaignRepository(db *sqlx.DB) campaign.Repository {
	return &PostgresCampaignRepository{db: db}
}

// Create inserta la campaña y su cola de envíos en una sola transacción.
func (r *PostgresCampaignRepository) Create(ctx context.Context, c *campaign.Campaign, records []campaign.QueueRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin campaign transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	campaignQuery := `
		INSERT INTO bulk_email_campaigns (
			id, name, status, total_count, sent_count, failed_count,
			attachment_path, attachment_name, created_by, created_at
		) VALUES (
			:id, :name, :status, :total_count, :sent_count, :failed_count,
			:attachment_path, :attachment_name, :created_by, :created_at
		)`
	if _, err := tx.NamedExecContext(ctx, campaignQuery, c); err != nil {
		return errx.Wrap(err, "failed to create campaign", errx.TypeInternal).
			WithDetail("campaign_id", c.ID)
	}

	recordQuery := `
		INSERT INTO bulk_email_queue (
			id, campaign_id, contact_id, to_email, to_name, cc_emails,
			subject, body, status, error_message, created_at
		) VALUES (
			:id, :campaign_id, :contact_id, :to_email, :to_name, :cc_emails,
			:subject, :body, :status, :error_message, :created_at
		)`
	for i := range records {
		if _, err := tx.NamedExecContext(ctx, recordQuery, records[i]); err != nil {
			return errx.Wrap(err, "failed to enqueue campaign record", errx.TypeInternal).
				WithDetail("campaign_id", c.ID).
				WithDetail("to_email", records[i].ToEmail)
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit campaign transaction", errx.TypeInternal)
	}
	return nil
}

// Get busca una campaña por su ID.
func (r *PostgresCampaignRepository) Get(ctx context.Context, id string) (*campaign.Campaign, error) {
	var c campaign.Campaign
	query := `SELECT * FROM bulk_email_campaigns WHERE id = $1`
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, campaign.ErrCampaignNotFound()
		}
		return nil, errx.Wrap(err, "failed to find campaign by ID", errx.TypeInternal)
	}
	return &c, nil
}

// List busca las campañas de un usuario, paginadas por fecha de creación.
func (r *PostgresCampaignRepository) List(ctx context.Context, createdBy string, opts kernel.PaginationOptions) (kernel.Paginated[campaign.Campaign], error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM bulk_email_campaigns WHERE created_by = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, createdBy); err != nil {
		return kernel.Paginated[campaign.Campaign]{}, errx.Wrap(err, "failed to count campaigns", errx.TypeInternal)
	}

	var items []campaign.Campaign
	query := `
		SELECT * FROM bulk_email_campaigns
		WHERE created_by = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	offset := (opts.Page - 1) * opts.PageSize
	if err := r.db.SelectContext(ctx, &items, query, createdBy, opts.PageSize, offset); err != nil {
		return kernel.Paginated[campaign.Campaign]{}, errx.Wrap(err, "failed to list campaigns", errx.TypeInternal)
	}

	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}

// UpdateStatus cambia el estado de la campaña.
func (r *PostgresCampaignRepository) UpdateStatus(ctx context.Context, id string, status campaign.Status) error {
	query := `UPDATE bulk_email_campaigns SET status = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return errx.Wrap(err, "failed to update campaign status", errx.TypeInternal).
			WithDetail("campaign_id", id)
	}
	return ensureFound(result)
}

// MarkStarted pasa la campaña a sending y fija started_at solo en la
// primera corrida.
func (r *PostgresCampaignRepository) MarkStarted(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE bulk_email_campaigns
		SET status = $2, started_at = COALESCE(started_at, $3)
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, campaign.StatusSending, at)
	if err != nil {
		return errx.Wrap(err, "failed to mark campaign started", errx.TypeInternal).
			WithDetail("campaign_id", id)
	}
	return ensureFound(result)
}

// Finish fija el estado terminal y completed_at.
func (r *PostgresCampaignRepository) Finish(ctx context.Context, id string, status campaign.Status, at time.Time) error {
	query := `UPDATE bulk_email_campaigns SET status = $2, completed_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, at)
	if err != nil {
		return errx.Wrap(err, "failed to finish campaign", errx.TypeInternal).
			WithDetail("campaign_id", id)
	}
	return ensureFound(result)
}

// SyncCounts recalcula los contadores desnormalizados desde la cola.
func (r *PostgresCampaignRepository) SyncCounts(ctx context.Context, id string) error {
	query := `
		UPDATE bulk_email_campaigns c SET
			sent_count = (SELECT COUNT(*) FROM bulk_email_queue q WHERE q.campaign_id = c.id AND q.status = 'sent'),
			failed_count = (SELECT COUNT(*) FROM bulk_email_queue q WHERE q.campaign_id = c.id AND q.status = 'failed')
		WHERE c.id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errx.Wrap(err, "failed to sync campaign counts", errx.TypeInternal).
			WithDetail("campaign_id", id)
	}
	return ensureFound(result)
}

// Delete elimina la campaña; la cola se borra en cascada.
func (r *PostgresCampaignRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM bulk_email_campaigns WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errx.Wrap(err, "failed to delete campaign", errx.TypeInternal).
			WithDetail("campaign_id", id)
	}
	return ensureFound(result)
}

// Progress agrega los estados de la cola en una sola consulta.
func (r *PostgresCampaignRepository) Progress(ctx context.Context, id string) (campaign.Progress, error) {
	var rows []struct {
		Status campaign.RecordStatus `db:"status"`
		Count  int                   `db:"count"`
	}
	query := `
		SELECT status, COUNT(*) AS count
		FROM bulk_email_queue
		WHERE campaign_id = $1
		GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query, id); err != nil {
		return campaign.Progress{}, errx.Wrap(err, "failed to aggregate campaign progress", errx.TypeInternal).
			WithDetail("campaign_id", id)
	}

	var p campaign.Progress
	for _, row := range rows {
		p.Total += row.Count
		switch row.Status {
		case campaign.RecordSent:
			p.Sent += row.Count
		case campaign.RecordFailed:
			p.Failed += row.Count
		case campaign.RecordPending, campaign.RecordSending:
			p.Pending += row.Count
		}
	}
	return p, nil
}

func ensureFound(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return campaign.ErrCampaignNotFound()
	}
	return nil
}

// PostgresQueueRepository es la implementación en PostgreSQL de
// campaign.QueueRepository.
type PostgresQueueRepository struct {
	db *sqlx.DB
}

// NewPostgresQueueRepository crea una nueva instancia del repositorio.
func NewPostgresQueueRepository(db *sqlx.DB) campaign.QueueRepository {
	return &PostgresQueueRepository{db: db}
}

// Pending devuelve los registros no procesados en orden FIFO.
func (r *PostgresQueueRepository) Pending(ctx context.Context, campaignID string) ([]campaign.QueueRecord, error) {
	var records []campaign.QueueRecord
	query := `
		SELECT * FROM bulk_email_queue
		WHERE campaign_id = $1 AND status = 'pending'
		ORDER BY created_at ASC, id ASC`
	if err := r.db.SelectContext(ctx, &records, query, campaignID); err != nil {
		return nil, errx.Wrap(err, "failed to load pending queue records", errx.TypeInternal).
			WithDetail("campaign_id", campaignID)
	}
	return records, nil
}

// ListByCampaign devuelve la cola completa de una campaña, paginada.
func (r *PostgresQueueRepository) ListByCampaign(ctx context.Context, campaignID string, opts kernel.PaginationOptions) (kernel.Paginated[campaign.QueueRecord], error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM bulk_email_queue WHERE campaign_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, campaignID); err != nil {
		return kernel.Paginated[campaign.QueueRecord]{}, errx.Wrap(err, "failed to count queue records", errx.TypeInternal)
	}

	var items []campaign.QueueRecord
	query := `
		SELECT * FROM bulk_email_queue
		WHERE campaign_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	offset := (opts.Page - 1) * opts.PageSize
	if err := r.db.SelectContext(ctx, &items, query, campaignID, opts.PageSize, offset); err != nil {
		return kernel.Paginated[campaign.QueueRecord]{}, errx.Wrap(err, "failed to list queue records", errx.TypeInternal)
	}

	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}

// MarkSending marca el registro como en curso antes del envío.
func (r *PostgresQueueRepository) MarkSending(ctx context.Context, id string) error {
	query := `UPDATE bulk_email_queue SET status = 'sending' WHERE id = $1`
	return r.updateRecord(ctx, query, id)
}

// MarkSent marca el registro como enviado con los IDs de Gmail.
func (r *PostgresQueueRepository) MarkSent(ctx context.Context, id, gmailID, threadID string, at time.Time) error {
	query := `
		UPDATE bulk_email_queue
		SET status = 'sent', gmail_id = $2, thread_id = $3, sent_at = $4, error_message = ''
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, gmailID, threadID, at)
	if err != nil {
		return errx.Wrap(err, "failed to mark queue record sent", errx.TypeInternal).
			WithDetail("record_id", id)
	}
	return ensureRecordFound(result)
}

// MarkFailed marca el registro como fallido con la razón del error.
func (r *PostgresQueueRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	query := `UPDATE bulk_email_queue SET status = 'failed', error_message = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, errMsg)
	if err != nil {
		return errx.Wrap(err, "failed to mark queue record failed", errx.TypeInternal).
			WithDetail("record_id", id)
	}
	return ensureRecordFound(result)
}

func (r *PostgresQueueRepository) updateRecord(ctx context.Context, query, id string) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errx.Wrap(err, "failed to update queue record", errx.TypeInternal).
			WithDetail("record_id", id)
	}
	return ensureRecordFound(result)
}

func ensureRecordFound(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return campaign.ErrRecordNotFound()
	}
	return nil
}
