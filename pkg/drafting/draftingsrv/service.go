package draftingsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/ai/llm"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/google/uuid"

	"github.com/digpatho/crm-backend/pkg/contact"
	"github.com/digpatho/crm-backend/pkg/drafting"
)

// historyWindow is how many recent interactions feed the prompt.
const historyWindow = 5

// Service generates and manages email drafts.
type Service struct {
	drafts       drafting.Repository
	contacts     contact.Repository
	interactions contact.InteractionRepository
	model        drafting.ChatModel
	modelName    string
}

// NewService creates the drafting service.
func NewService(drafts drafting.Repository, contacts contact.Repository, interactions contact.InteractionRepository, model drafting.ChatModel, modelName string) *Service {
	return &Service{
		drafts:       drafts,
		contacts:     contacts,
		interactions: interactions,
		model:        model,
		modelName:    modelName,
	}
}

// Generate asks the model for a personalized email and stores the result as
// a draft in generated state.
func (s *Service) Generate(ctx context.Context, req drafting.GenerateRequest) (*drafting.Draft, error) {
	c, err := s.contacts.Get(ctx, req.ContactID)
	if err != nil {
		return nil, err
	}

	history, err := s.interactions.ListByContact(ctx, req.ContactID, kernel.PaginationOptions{Page: 1, PageSize: historyWindow})
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{
		llm.NewSystemMessage(buildSystemPrompt(req)),
		llm.NewUserMessage(buildUserPrompt(c, history.Items, req)),
	}

	resp, err := s.model.Chat(ctx, messages,
		llm.WithModel(s.modelName),
		llm.WithTemperature(0.7),
	)
	if err != nil {
		return nil, drafting.ErrRegistry.NewWithCause(drafting.CodeGenerationError, err).
			WithDetail("contact_id", req.ContactID)
	}

	parsed := drafting.ParseDraftResponse(resp.Message.Content)
	if parsed.Subject == "" && parsed.Body == "" {
		return nil, drafting.ErrEmptyResponse().WithDetail("contact_id", req.ContactID)
	}

	draft := &drafting.Draft{
		ID:        uuid.New().String(),
		ContactID: req.ContactID,
		Subject:   parsed.Subject,
		Body:      parsed.Body,
		Notes:     parsed.Notes,
		Status:    drafting.StatusGenerated,
		AIModel:   s.modelName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"draft_id":   draft.ID,
		"contact_id": req.ContactID,
		"project":    req.Project,
	}).Info("email draft generated")
	return draft, nil
}

// Get returns one draft.
func (s *Service) Get(ctx context.Context, id string) (*drafting.Draft, error) {
	return s.drafts.Get(ctx, id)
}

// ListByContact returns a contact's drafts, newest first.
func (s *Service) ListByContact(ctx context.Context, contactID string, opts kernel.PaginationOptions) (kernel.Paginated[drafting.Draft], error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	return s.drafts.ListByContact(ctx, contactID, opts)
}

// Edit stores a manual rewrite of the body, keeping the generated original.
func (s *Service) Edit(ctx context.Context, id, body string) (*drafting.Draft, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	d.EditedBody = &body
	d.EditedAt = &now
	d.Status = drafting.StatusEdited
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// MarkSent flags the draft as delivered by the given operator.
func (s *Service) MarkSent(ctx context.Context, id, sentBy string) error {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	d.Status = drafting.StatusSent
	d.SentAt = &now
	d.SentBy = &sentBy
	return s.drafts.Save(ctx, d)
}

// Delete removes a draft.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.drafts.Delete(ctx, id)
}
