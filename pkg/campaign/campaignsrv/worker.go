package campaignsrv

import (
	"context"
	"encoding/json"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/jobx"
	"github.com/Abraxas-365/manifesto/pkg/logx"

	"github.com/digpatho/crm-backend/pkg/campaign"
	"github.com/digpatho/crm-backend/pkg/mailer"
	"github.com/digpatho/crm-backend/pkg/operator"
)

// Worker binds the dispatcher to the job queue: one dispatch job is one
// campaign run under one operator's credentials.
type Worker struct {
	campaigns  campaign.Repository
	profiles   operator.ProfileRepository
	dispatcher *Dispatcher
	oauth      mailer.OAuthConfig
}

// NewWorker creates the dispatch job worker.
func NewWorker(campaigns campaign.Repository, profiles operator.ProfileRepository, dispatcher *Dispatcher, oauth mailer.OAuthConfig) *Worker {
	return &Worker{
		campaigns:  campaigns,
		profiles:   profiles,
		dispatcher: dispatcher,
		oauth:      oauth,
	}
}

// Register attaches the dispatch handler to the job client.
func (w *Worker) Register(client *jobx.Client) {
	client.Register(DispatchJobType, w.handleDispatch)
}

func (w *Worker) handleDispatch(ctx context.Context, job *jobx.JobInfo) error {
	var payload DispatchPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return errx.Wrap(err, "failed to decode dispatch payload", errx.TypeInternal)
	}

	camp, err := w.campaigns.Get(ctx, payload.CampaignID)
	if err != nil {
		return err
	}

	prof, err := w.profiles.Get(ctx, payload.OperatorID)
	if err != nil {
		return err
	}

	sender := mailer.Identity{
		Email:     prof.Email,
		Name:      prof.FullName,
		Signature: prof.EmailSignature,
	}
	tokens := mailer.NewTokenManager(payload.OperatorID, w.profiles, w.oauth)

	if err := w.dispatcher.Run(ctx, camp, sender, tokens); err != nil {
		logx.WithFields(logx.Fields{
			"campaign_id": payload.CampaignID,
			"operator_id": payload.OperatorID,
			"job_id":      job.ID,
			"error":       err.Error(),
		}).Error("campaign dispatch run failed")
		return err
	}
	return nil
}
