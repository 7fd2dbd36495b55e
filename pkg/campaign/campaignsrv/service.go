package campaignsrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/fsx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/google/uuid"

	"github.com/digpatho/crm-backend/pkg/campaign"
)

// Service handles campaign creation and read/delete operations. Run control
// lives in Supervisor.
type Service struct {
	campaigns campaign.Repository
	queue     campaign.QueueRepository
	files     fsx.FileSystem
}

// NewService creates the campaign service. files may be nil when attachment
// storage is disabled.
func NewService(campaigns campaign.Repository, queue campaign.QueueRepository, files fsx.FileSystem) *Service {
	return &Service{
		campaigns: campaigns,
		queue:     queue,
		files:     files,
	}
}

// RecipientImport is one row of an imported recipient list, already rendered
// with its final subject and body.
type RecipientImport struct {
	ContactID *string `json:"contact_id,omitempty"`
	Email     string  `json:"email"`
	Name      string  `json:"name,omitempty"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body"`
}

// CampaignImport is the payload to create a campaign with its full queue.
type CampaignImport struct {
	Name           string            `json:"name"`
	CC             []string          `json:"cc,omitempty"`
	Recipients     []RecipientImport `json:"recipients"`
	AttachmentName string            `json:"attachment_name,omitempty"`
	AttachmentData []byte            `json:"attachment_data,omitempty"`
}

// CampaignDetail pairs a campaign with its live progress.
type CampaignDetail struct {
	Campaign *campaign.Campaign `json:"campaign"`
	Progress campaign.Progress  `json:"progress"`
}

// CreateFromImport validates the import, deduplicates recipients by email
// and persists the campaign together with its queue in one shot. Recipients
// without a plausible address are dropped; an import that yields zero valid
// recipients is rejected.
func (s *Service) CreateFromImport(ctx context.Context, createdBy string, in CampaignImport) (*campaign.Campaign, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, campaign.ErrRegistry.NewWithMessage(campaign.CodeEmptyQueue, "Campaign name is required")
	}

	now := time.Now().UTC()
	campaignID := uuid.New().String()

	seen := make(map[string]bool, len(in.Recipients))
	records := make([]campaign.QueueRecord, 0, len(in.Recipients))
	dropped := 0
	for _, rcp := range in.Recipients {
		email := strings.ToLower(strings.TrimSpace(rcp.Email))
		if !plausibleEmail(email) || seen[email] {
			dropped++
			continue
		}
		seen[email] = true

		records = append(records, campaign.QueueRecord{
			ID:         uuid.New().String(),
			CampaignID: campaignID,
			ContactID:  rcp.ContactID,
			ToEmail:    email,
			ToName:     strings.TrimSpace(rcp.Name),
			CC:         in.CC,
			Subject:    rcp.Subject,
			Body:       rcp.Body,
			Status:     campaign.RecordPending,
			CreatedAt:  now,
		})
	}
	if len(records) == 0 {
		return nil, campaign.ErrEmptyQueue()
	}
	if dropped > 0 {
		logx.WithFields(logx.Fields{
			"campaign_id": campaignID,
			"dropped":     dropped,
		}).Warn("import rows dropped for invalid or duplicate email")
	}

	c := &campaign.Campaign{
		ID:         campaignID,
		Name:       name,
		Status:     campaign.StatusReady,
		TotalCount: len(records),
		CreatedBy:  createdBy,
		CreatedAt:  now,
	}

	if len(in.AttachmentData) > 0 && in.AttachmentName != "" && s.files != nil {
		path := s.files.Join("campaigns", campaignID, in.AttachmentName)
		if err := s.files.WriteFile(ctx, path, in.AttachmentData); err != nil {
			return nil, errx.Wrap(err, "failed to store campaign attachment", errx.TypeInternal).
				WithDetail("campaign_id", campaignID)
		}
		c.AttachmentPath = path
		c.AttachmentName = in.AttachmentName
	}

	if err := s.campaigns.Create(ctx, c, records); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns the creator's campaigns, newest first.
func (s *Service) List(ctx context.Context, createdBy string, opts kernel.PaginationOptions) (kernel.Paginated[campaign.Campaign], error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	return s.campaigns.List(ctx, createdBy, opts)
}

// Detail returns one campaign with progress recomputed from the queue.
func (s *Service) Detail(ctx context.Context, id string) (*CampaignDetail, error) {
	c, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	progress, err := s.campaigns.Progress(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CampaignDetail{Campaign: c, Progress: progress}, nil
}

// Queue returns the campaign's records in FIFO order, paginated.
func (s *Service) Queue(ctx context.Context, campaignID string, opts kernel.PaginationOptions) (kernel.Paginated[campaign.QueueRecord], error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	return s.queue.ListByCampaign(ctx, campaignID, opts)
}

// Delete removes a campaign and its queue. An active run must be cancelled
// or paused first.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.campaigns.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == campaign.StatusSending {
		return campaign.ErrDeleteWhileSending()
	}

	if err := s.campaigns.Delete(ctx, id); err != nil {
		return err
	}

	if c.HasAttachment() && s.files != nil {
		if err := s.files.DeleteFile(ctx, c.AttachmentPath); err != nil {
			logx.WithFields(logx.Fields{
				"campaign_id": id,
				"path":        c.AttachmentPath,
				"error":       err.Error(),
			}).Warn("failed to remove campaign attachment")
		}
	}
	return nil
}

// plausibleEmail is a cheap sanity filter, not full address validation. The
// provider is the final arbiter at send time.
func plausibleEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.Contains(email, " ")
}
