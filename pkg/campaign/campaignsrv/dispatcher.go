package campaignsrv

import (
	"context"
	"mime"
	"path/filepath"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/fsx"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/Abraxas-365/manifesto/pkg/notifx"

	"github.com/digpatho/crm-backend/pkg/campaign"
	"github.com/digpatho/crm-backend/pkg/mailer"
)

const (
	// defaultSendDelay keeps sequential sends under the provider's
	// per-user rate ceiling.
	defaultSendDelay = 2 * time.Second

	// defaultRefreshEvery forces a token refresh periodically during long
	// runs so a token never expires mid-batch.
	defaultRefreshEvery = 50
)

// Dispatcher drains a campaign's queue one record at a time. A single
// dispatcher owns a run; concurrency lives outside, in the job worker.
type Dispatcher struct {
	campaigns campaign.Repository
	queue     campaign.QueueRepository
	control   campaign.ControlStore
	journal   campaign.InteractionJournal
	transport mailer.Transport
	files     fsx.FileSystem

	sendDelay    time.Duration
	refreshEvery int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSendDelay overrides the pacing delay between consecutive sends.
func WithSendDelay(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) { dp.sendDelay = d }
}

// WithRefreshEvery overrides how many records pass between forced token
// refreshes.
func WithRefreshEvery(n int) DispatcherOption {
	return func(dp *Dispatcher) { dp.refreshEvery = n }
}

// NewDispatcher creates a dispatcher over the given stores and transport.
// journal and files may be nil when journaling or attachments are not in play.
func NewDispatcher(
	campaigns campaign.Repository,
	queue campaign.QueueRepository,
	control campaign.ControlStore,
	journal campaign.InteractionJournal,
	transport mailer.Transport,
	files fsx.FileSystem,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		campaigns:    campaigns,
		queue:        queue,
		control:      control,
		journal:      journal,
		transport:    transport,
		files:        files,
		sendDelay:    defaultSendDelay,
		refreshEvery: defaultRefreshEvery,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes every pending record of the campaign in FIFO order and
// settles the campaign into its terminal state. Pause and cancel are honored
// at the top of each iteration; a paused campaign keeps its remaining records
// pending so a later run picks up exactly where this one stopped, and a
// cancelled run is abandoned with the campaign status untouched.
//
// Errors split two ways: a per-record failure marks that record failed and
// the loop moves on; an infrastructure or credential failure aborts the run
// and is returned to the caller.
func (d *Dispatcher) Run(ctx context.Context, camp *campaign.Campaign, sender mailer.Identity, tokens mailer.TokenSource) error {
	pending, err := d.queue.Pending(ctx, camp.ID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return d.finish(ctx, camp.ID)
	}

	// Warm the credential before touching any record so an expired grant
	// fails the run with zero records consumed.
	accessToken, err := tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	attachment, err := d.loadAttachment(ctx, camp)
	if err != nil {
		return err
	}

	logx.WithFields(logx.Fields{
		"campaign_id": camp.ID,
		"pending":     len(pending),
	}).Info("campaign dispatch started")

	for i := range pending {
		rec := &pending[i]

		signal, err := d.control.State(ctx, camp.ID)
		if err != nil {
			return err
		}
		switch signal {
		case campaign.SignalPause:
			logx.WithFields(logx.Fields{
				"campaign_id": camp.ID,
				"processed":   i,
				"remaining":   len(pending) - i,
			}).Info("campaign paused")
			if err := d.campaigns.UpdateStatus(ctx, camp.ID, campaign.StatusPaused); err != nil {
				return err
			}
			return d.campaigns.SyncCounts(ctx, camp.ID)
		case campaign.SignalCancel:
			logx.WithFields(logx.Fields{
				"campaign_id": camp.ID,
				"processed":   i,
			}).Info("campaign cancelled")
			// Abandonment, not completion: counters reflect what ran but
			// the campaign keeps its status, so it stays resumable.
			return d.campaigns.SyncCounts(ctx, camp.ID)
		}

		// Claim the record before the send so a crash leaves it visibly
		// in-flight instead of silently pending.
		if err := d.queue.MarkSending(ctx, rec.ID); err != nil {
			return err
		}

		if i > 0 && d.refreshEvery > 0 && i%d.refreshEvery == 0 {
			accessToken, err = tokens.ForceRefresh(ctx)
			if err != nil {
				return err
			}
		}

		if err := d.sendOne(ctx, camp, rec, sender, accessToken, attachment); err != nil {
			if isFatal(err) {
				return err
			}
			logx.WithFields(logx.Fields{
				"campaign_id": camp.ID,
				"record_id":   rec.ID,
				"to":          rec.ToEmail,
				"error":       err.Error(),
			}).Warn("record delivery failed")
			if markErr := d.queue.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
				return markErr
			}
		}

		if i < len(pending)-1 {
			select {
			case <-time.After(d.sendDelay):
			case <-ctx.Done():
				return errx.Wrap(ctx.Err(), "dispatch interrupted", errx.TypeInternal)
			}
		}
	}

	return d.finish(ctx, camp.ID)
}

// sendOne renders and delivers a single record, then records the outcome.
// The returned error is per-record unless it carries a fatal code.
func (d *Dispatcher) sendOne(ctx context.Context, camp *campaign.Campaign, rec *campaign.QueueRecord, sender mailer.Identity, accessToken string, attachment *notifx.Attachment) error {
	msg := notifx.EmailMessage{
		From:     sender.Address(),
		To:       []string{rec.ToEmail},
		CC:       rec.CC,
		Subject:  rec.Subject,
		TextBody: rec.Body,
	}
	if attachment != nil {
		msg.Attachments = []notifx.Attachment{*attachment}
	}

	raw, err := mailer.BuildRaw(msg, sender.Signature)
	if err != nil {
		return err
	}

	receipt, err := d.transport.Send(ctx, raw, accessToken)
	if err != nil {
		return err
	}

	sentAt := time.Now().UTC()
	if err := d.queue.MarkSent(ctx, rec.ID, receipt.MessageID, receipt.ThreadID, sentAt); err != nil {
		return err
	}

	if d.journal != nil {
		entry := campaign.SentEmail{
			CampaignID:     camp.ID,
			ContactID:      rec.ContactID,
			ToEmail:        rec.ToEmail,
			ToName:         rec.ToName,
			CC:             rec.CC,
			Subject:        rec.Subject,
			Body:           rec.Body,
			AttachmentName: camp.AttachmentName,
			GmailID:        receipt.MessageID,
			ThreadID:       receipt.ThreadID,
			SentAt:         sentAt,
			SentBy:         camp.CreatedBy,
		}
		if err := d.journal.RecordEmailSent(ctx, entry); err != nil {
			logx.WithFields(logx.Fields{
				"campaign_id": camp.ID,
				"record_id":   rec.ID,
				"error":       err.Error(),
			}).Warn("failed to journal sent email")
		}
	}

	return nil
}

// loadAttachment fetches the campaign's stored attachment once per run.
func (d *Dispatcher) loadAttachment(ctx context.Context, camp *campaign.Campaign) (*notifx.Attachment, error) {
	if !camp.HasAttachment() || d.files == nil {
		return nil, nil
	}

	data, err := d.files.ReadFile(ctx, camp.AttachmentPath)
	if err != nil {
		return nil, errx.Wrap(err, "failed to load campaign attachment", errx.TypeInternal).
			WithDetail("campaign_id", camp.ID).
			WithDetail("path", camp.AttachmentPath)
	}

	contentType := mime.TypeByExtension(filepath.Ext(camp.AttachmentName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &notifx.Attachment{
		Filename:    camp.AttachmentName,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// finish recomputes counters from the queue and settles the terminal status:
// failed only when every processed record failed, completed otherwise.
func (d *Dispatcher) finish(ctx context.Context, campaignID string) error {
	if err := d.campaigns.SyncCounts(ctx, campaignID); err != nil {
		return err
	}

	progress, err := d.campaigns.Progress(ctx, campaignID)
	if err != nil {
		return err
	}

	status := campaign.StatusCompleted
	if progress.Total > 0 && progress.Failed == progress.Total {
		status = campaign.StatusFailed
	}

	logx.WithFields(logx.Fields{
		"campaign_id": campaignID,
		"sent":        progress.Sent,
		"failed":      progress.Failed,
		"status":      string(status),
	}).Info("campaign dispatch finished")

	return d.campaigns.Finish(ctx, campaignID, status, time.Now().UTC())
}

// isFatal reports whether err must abort the whole run rather than fail one
// record. Credential expiry and anything internal qualifies; validation and
// provider rejections stay per-record.
func isFatal(err error) bool {
	if mailer.IsAuthExpired(err) {
		return true
	}
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Type == errx.TypeInternal
	}
	return true
}
