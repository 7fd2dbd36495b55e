package campaignsrv

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/jobx"
	"github.com/Abraxas-365/manifesto/pkg/logx"

	"github.com/digpatho/crm-backend/pkg/campaign"
)

// DispatchJobType identifies the background job that runs a campaign.
const DispatchJobType = "campaign:dispatch"

// DispatchPayload is the job payload for one campaign run.
type DispatchPayload struct {
	CampaignID string `json:"campaign_id"`
	OperatorID string `json:"operator_id"`
}

// Supervisor controls campaign runs: it moves a campaign into sending and
// hands the actual work to the job queue, and it relays pause/cancel to the
// dispatcher through the control store.
type Supervisor struct {
	campaigns campaign.Repository
	control   campaign.ControlStore
	jobs      jobx.JobEnqueuer
	queueName string
}

// NewSupervisor creates a supervisor enqueuing onto the given queue.
func NewSupervisor(campaigns campaign.Repository, control campaign.ControlStore, jobs jobx.JobEnqueuer, queueName string) *Supervisor {
	return &Supervisor{
		campaigns: campaigns,
		control:   control,
		jobs:      jobs,
		queueName: queueName,
	}
}

// Start begins or resumes a run. Valid from draft, ready and paused; a
// resumed run picks up only the records still pending. The campaign is
// marked sending before the job is enqueued so the API reflects the new
// state immediately.
func (s *Supervisor) Start(ctx context.Context, campaignID, operatorID string) error {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	if !c.Status.Startable() {
		return campaign.ErrNotStartable().WithDetail("status", string(c.Status))
	}

	// Drop any stale signal from a previous run.
	if err := s.control.Clear(ctx, campaignID); err != nil {
		return err
	}

	if err := s.campaigns.MarkStarted(ctx, campaignID, time.Now().UTC()); err != nil {
		return err
	}

	payload, err := json.Marshal(DispatchPayload{CampaignID: campaignID, OperatorID: operatorID})
	if err != nil {
		return errx.Wrap(err, "failed to marshal dispatch payload", errx.TypeInternal)
	}

	jobID, err := s.jobs.Enqueue(ctx, jobx.Job{
		Type:       DispatchJobType,
		Queue:      s.queueName,
		Payload:    payload,
		MaxRetries: 1,
	})
	if err != nil {
		// Roll the status back so the campaign does not look stuck in
		// sending with no worker attached.
		if rbErr := s.campaigns.UpdateStatus(ctx, campaignID, c.Status); rbErr != nil {
			logx.WithFields(logx.Fields{
				"campaign_id": campaignID,
				"error":       rbErr.Error(),
			}).Error("failed to roll back campaign status after enqueue failure")
		}
		return err
	}

	logx.WithFields(logx.Fields{
		"campaign_id": campaignID,
		"job_id":      jobID,
	}).Info("campaign dispatch enqueued")
	return nil
}

// Resume restarts a paused campaign.
func (s *Supervisor) Resume(ctx context.Context, campaignID, operatorID string) error {
	return s.Start(ctx, campaignID, operatorID)
}

// Pause asks a running dispatch to stop at its next checkpoint. The records
// already handed to the provider keep their outcome.
func (s *Supervisor) Pause(ctx context.Context, campaignID string) error {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	if c.Status != campaign.StatusSending {
		return campaign.ErrNotRunning().WithDetail("status", string(c.Status))
	}
	return s.control.RaisePause(ctx, campaignID)
}

// Cancel abandons the run: a running dispatch stops at its next checkpoint
// and the campaign keeps the status it had, so the caller may still resume
// or delete it. Records already handed to the provider keep their outcome;
// the rest stay pending and are never sent by the abandoned run.
func (s *Supervisor) Cancel(ctx context.Context, campaignID string) error {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return err
	}

	switch c.Status {
	case campaign.StatusSending, campaign.StatusPaused:
		// On a paused campaign no loop is alive to observe the signal;
		// it simply expires, or Start clears it on resume.
		return s.control.RaiseCancel(ctx, campaignID)
	default:
		return campaign.ErrNotRunning().WithDetail("status", string(c.Status))
	}
}

// Progress returns the live aggregate, always recomputed from the queue.
func (s *Supervisor) Progress(ctx context.Context, campaignID string) (campaign.Progress, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		return campaign.Progress{}, err
	}
	return s.campaigns.Progress(ctx, campaignID)
}
