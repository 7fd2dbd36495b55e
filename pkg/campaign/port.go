package campaign

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// Repository persists campaigns.
type Repository interface {
	// Create stores the campaign together with its queue records in a
	// single transaction.
	Create(ctx context.Context, c *Campaign, records []QueueRecord) error
	Get(ctx context.Context, id string) (*Campaign, error)
	List(ctx context.Context, createdBy string, opts kernel.PaginationOptions) (kernel.Paginated[Campaign], error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	// MarkStarted moves the campaign to sending and stamps started_at on
	// the first run only.
	MarkStarted(ctx context.Context, id string, at time.Time) error
	// Finish sets the terminal status and stamps completed_at.
	Finish(ctx context.Context, id string, status Status, at time.Time) error
	// SyncCounts refreshes the denormalized sent/failed counters from the
	// queue store.
	SyncCounts(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Progress(ctx context.Context, id string) (Progress, error)
}

// QueueRepository persists the per-record send queue.
type QueueRepository interface {
	// Pending returns the campaign's unprocessed records in FIFO order.
	Pending(ctx context.Context, campaignID string) ([]QueueRecord, error)
	ListByCampaign(ctx context.Context, campaignID string, opts kernel.PaginationOptions) (kernel.Paginated[QueueRecord], error)
	MarkSending(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id, gmailID, threadID string, at time.Time) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// ControlStore carries pause/cancel signals from the API to a running
// dispatcher. Signals persist until cleared so a request raised between
// checkpoints is still observed at the next one.
type ControlStore interface {
	RaisePause(ctx context.Context, campaignID string) error
	RaiseCancel(ctx context.Context, campaignID string) error
	Clear(ctx context.Context, campaignID string) error
	State(ctx context.Context, campaignID string) (Signal, error)
}

// SentEmail describes a delivered message for journaling purposes.
type SentEmail struct {
	CampaignID     string
	ContactID      *string
	ToEmail        string
	ToName         string
	CC             []string
	Subject        string
	Body           string
	AttachmentName string
	GmailID        string
	ThreadID       string
	SentAt         time.Time
	SentBy         string
}

// InteractionJournal records delivered emails on the contact timeline. A
// journal failure never fails the send that produced it.
type InteractionJournal interface {
	RecordEmailSent(ctx context.Context, e SentEmail) error
}
