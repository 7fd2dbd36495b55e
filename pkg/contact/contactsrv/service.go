package contactsrv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
	"github.com/Abraxas-365/manifesto/pkg/logx"
	"github.com/google/uuid"

	"github.com/digpatho/crm-backend/pkg/campaign"
	"github.com/digpatho/crm-backend/pkg/contact"
)

// Service handles contact CRUD and the interaction timeline. It also
// implements campaign.InteractionJournal so delivered campaign mail lands on
// the contact's history.
type Service struct {
	contacts     contact.Repository
	interactions contact.InteractionRepository
}

// NewService creates the contact service.
func NewService(contacts contact.Repository, interactions contact.InteractionRepository) *Service {
	return &Service{contacts: contacts, interactions: interactions}
}

// Create validates and stores a new contact.
func (s *Service) Create(ctx context.Context, c *contact.Contact) (*contact.Contact, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Email == "" && c.FullName() == "" {
		return nil, contact.ErrInvalidContact().WithDetail("reason", "email or name required")
	}

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.New().String()
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if err := s.contacts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update persists edits to an existing contact.
func (s *Service) Update(ctx context.Context, c *contact.Contact) (*contact.Contact, error) {
	if _, err := s.contacts.Get(ctx, c.ID); err != nil {
		return nil, err
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.UpdatedAt = time.Now().UTC()
	if err := s.contacts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns one contact.
func (s *Service) Get(ctx context.Context, id string) (*contact.Contact, error) {
	return s.contacts.Get(ctx, id)
}

// List returns contacts paginated, optionally filtered by a search query.
func (s *Service) List(ctx context.Context, query string, opts kernel.PaginationOptions) (kernel.Paginated[contact.Contact], error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	if strings.TrimSpace(query) != "" {
		return s.contacts.Search(ctx, strings.TrimSpace(query), opts)
	}
	return s.contacts.List(ctx, opts)
}

// Delete removes a contact.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.contacts.Delete(ctx, id)
}

// AddInteraction records a manual timeline entry.
func (s *Service) AddInteraction(ctx context.Context, i *contact.Interaction) (*contact.Interaction, error) {
	if _, err := s.contacts.Get(ctx, i.ContactID); err != nil {
		return nil, err
	}
	if i.Type == "" {
		i.Type = contact.TypeNote
	}
	if i.Direction == "" {
		i.Direction = contact.DirectionInternal
	}
	now := time.Now().UTC()
	i.ID = uuid.New().String()
	if i.OccurredAt.IsZero() {
		i.OccurredAt = now
	}
	i.CreatedAt = now

	if err := s.interactions.Create(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

// Timeline returns a contact's interactions, newest first.
func (s *Service) Timeline(ctx context.Context, contactID string, opts kernel.PaginationOptions) (kernel.Paginated[contact.Interaction], error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	return s.interactions.ListByContact(ctx, contactID, opts)
}

// RecordEmailSent journals one delivered campaign email. When the queue
// record carries no contact reference the address is resolved against the
// contact book; mail to an unknown address is simply not journaled.
func (s *Service) RecordEmailSent(ctx context.Context, e campaign.SentEmail) error {
	contactID := ""
	if e.ContactID != nil {
		contactID = *e.ContactID
	}
	if contactID == "" {
		found, err := s.contacts.FindByEmail(ctx, e.ToEmail)
		if err != nil {
			var xerr *errx.Error
			if errx.As(err, &xerr) && xerr.Type == errx.TypeNotFound {
				logx.Debugf("no contact for %s, skipping journal entry", e.ToEmail)
				return nil
			}
			return err
		}
		contactID = found.ID
	}

	content := e.Body
	if len(e.CC) > 0 {
		content = fmt.Sprintf("[CC: %s]\n\n%s", strings.Join(e.CC, ", "), content)
	}
	if e.AttachmentName != "" {
		content += fmt.Sprintf("\n\n[Adjuntos: %s]", e.AttachmentName)
	}

	return s.interactions.Create(ctx, &contact.Interaction{
		ID:         uuid.New().String(),
		ContactID:  contactID,
		Type:       contact.TypeEmailSent,
		Subject:    e.Subject,
		Content:    content,
		Direction:  contact.DirectionOutbound,
		OccurredAt: e.SentAt,
		CreatedBy:  e.SentBy,
		ThreadID:   e.ThreadID,
		GmailID:    e.GmailID,
		CreatedAt:  time.Now().UTC(),
	})
}
