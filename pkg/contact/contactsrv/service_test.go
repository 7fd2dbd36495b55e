package contactsrv_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/manifesto/pkg/errx"
	"github.com/Abraxas-365/manifesto/pkg/kernel"

	"github.com/digpatho/crm-backend/pkg/campaign"
	"github.com/digpatho/crm-backend/pkg/contact"
	"github.com/digpatho/crm-backend/pkg/contact/contactsrv"
)

// fakeBook is an in-memory contact.Repository plus InteractionRepository.
type fakeBook struct {
	byID         map[string]*contact.Contact
	interactions []contact.Interaction
}

func newFakeBook(contacts ...contact.Contact) *fakeBook {
	b := &fakeBook{byID: make(map[string]*contact.Contact)}
	for i := range contacts {
		c := contacts[i]
		b.byID[c.ID] = &c
	}
	return b
}

func (b *fakeBook) Save(_ context.Context, c *contact.Contact) error {
	cp := *c
	b.byID[c.ID] = &cp
	return nil
}

func (b *fakeBook) Get(_ context.Context, id string) (*contact.Contact, error) {
	c, ok := b.byID[id]
	if !ok {
		return nil, contact.ErrContactNotFound()
	}
	cp := *c
	return &cp, nil
}

func (b *fakeBook) FindByEmail(_ context.Context, email string) (*contact.Contact, error) {
	for _, c := range b.byID {
		if strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, contact.ErrContactNotFound()
}

func (b *fakeBook) List(context.Context, kernel.PaginationOptions) (kernel.Paginated[contact.Contact], error) {
	return kernel.Paginated[contact.Contact]{}, nil
}

func (b *fakeBook) Search(context.Context, string, kernel.PaginationOptions) (kernel.Paginated[contact.Contact], error) {
	return kernel.Paginated[contact.Contact]{}, nil
}

func (b *fakeBook) Delete(_ context.Context, id string) error {
	delete(b.byID, id)
	return nil
}

func (b *fakeBook) Create(_ context.Context, i *contact.Interaction) error {
	b.interactions = append(b.interactions, *i)
	return nil
}

func (b *fakeBook) ListByContact(context.Context, string, kernel.PaginationOptions) (kernel.Paginated[contact.Interaction], error) {
	return kernel.Paginated[contact.Interaction]{}, nil
}

func strPtr(s string) *string { return &s }

// --- RecordEmailSent tests ---

func TestRecordEmailSent_WithContactReference(t *testing.T) {
	book := newFakeBook(contact.Contact{ID: "ct-1", Email: "luis@lab.org"})
	svc := contactsrv.NewService(book, book)

	sentAt := time.Date(2026, 8, 12, 15, 0, 0, 0, time.UTC)
	err := svc.RecordEmailSent(context.Background(), campaign.SentEmail{
		CampaignID: "camp-1",
		ContactID:  strPtr("ct-1"),
		ToEmail:    "luis@lab.org",
		Subject:    "Hola Luis",
		Body:       "cuerpo",
		GmailID:    "gm-1",
		ThreadID:   "th-1",
		SentAt:     sentAt,
		SentBy:     "op-1",
	})
	if err != nil {
		t.Fatalf("RecordEmailSent: %v", err)
	}

	if len(book.interactions) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(book.interactions))
	}
	i := book.interactions[0]
	if i.ContactID != "ct-1" || i.Type != contact.TypeEmailSent || i.Direction != contact.DirectionOutbound {
		t.Fatalf("unexpected interaction: %+v", i)
	}
	if i.GmailID != "gm-1" || i.ThreadID != "th-1" {
		t.Fatalf("provider ids not recorded: %+v", i)
	}
	if !i.OccurredAt.Equal(sentAt) {
		t.Fatalf("occurred_at = %v, want %v", i.OccurredAt, sentAt)
	}
	if i.Content != "cuerpo" {
		t.Fatalf("content = %q", i.Content)
	}
}

func TestRecordEmailSent_ResolvesContactByEmail(t *testing.T) {
	book := newFakeBook(contact.Contact{ID: "ct-9", Email: "ana@clinic.com"})
	svc := contactsrv.NewService(book, book)

	err := svc.RecordEmailSent(context.Background(), campaign.SentEmail{
		ToEmail: "ana@clinic.com",
		Subject: "s",
		Body:    "b",
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordEmailSent: %v", err)
	}
	if len(book.interactions) != 1 || book.interactions[0].ContactID != "ct-9" {
		t.Fatalf("contact not resolved by email: %+v", book.interactions)
	}
}

func TestRecordEmailSent_UnknownAddressSkipsSilently(t *testing.T) {
	book := newFakeBook()
	svc := contactsrv.NewService(book, book)

	err := svc.RecordEmailSent(context.Background(), campaign.SentEmail{
		ToEmail: "desconocido@x.com",
		Subject: "s",
		Body:    "b",
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("unknown address must not be an error, got %v", err)
	}
	if len(book.interactions) != 0 {
		t.Fatal("no interaction should be journaled")
	}
}

func TestRecordEmailSent_AnnotatesCCAndAttachment(t *testing.T) {
	book := newFakeBook(contact.Contact{ID: "ct-1", Email: "luis@lab.org"})
	svc := contactsrv.NewService(book, book)

	err := svc.RecordEmailSent(context.Background(), campaign.SentEmail{
		ContactID:      strPtr("ct-1"),
		ToEmail:        "luis@lab.org",
		CC:             []string{"jefe@digpatho.com", "equipo@digpatho.com"},
		Subject:        "s",
		Body:           "cuerpo",
		AttachmentName: "paper.pdf",
		SentAt:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordEmailSent: %v", err)
	}

	content := book.interactions[0].Content
	if !strings.HasPrefix(content, "[CC: jefe@digpatho.com, equipo@digpatho.com]\n\n") {
		t.Fatalf("CC annotation missing: %q", content)
	}
	if !strings.HasSuffix(content, "\n\n[Adjuntos: paper.pdf]") {
		t.Fatalf("attachment annotation missing: %q", content)
	}
}

// --- Create / AddInteraction tests ---

func TestCreate_NormalizesEmail(t *testing.T) {
	book := newFakeBook()
	svc := contactsrv.NewService(book, book)

	c, err := svc.Create(context.Background(), &contact.Contact{Email: "  Ana@Clinic.COM "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Email != "ana@clinic.com" {
		t.Fatalf("email = %q", c.Email)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		t.Fatalf("identity not assigned: %+v", c)
	}
}

func TestCreate_RequiresEmailOrName(t *testing.T) {
	book := newFakeBook()
	svc := contactsrv.NewService(book, book)

	_, err := svc.Create(context.Background(), &contact.Contact{})
	var e *errx.Error
	if !errx.As(err, &e) || e.Code != contact.CodeInvalidContact.Code {
		t.Fatalf("expected invalid contact error, got %v", err)
	}
}

func TestAddInteraction_Defaults(t *testing.T) {
	book := newFakeBook(contact.Contact{ID: "ct-1", Email: "a@x.com"})
	svc := contactsrv.NewService(book, book)

	i, err := svc.AddInteraction(context.Background(), &contact.Interaction{
		ContactID: "ct-1",
		Content:   "llamada breve",
	})
	if err != nil {
		t.Fatalf("AddInteraction: %v", err)
	}
	if i.Type != contact.TypeNote || i.Direction != contact.DirectionInternal {
		t.Fatalf("defaults not applied: %+v", i)
	}
	if i.OccurredAt.IsZero() {
		t.Fatal("occurred_at not defaulted")
	}
}

func TestAddInteraction_UnknownContact(t *testing.T) {
	book := newFakeBook()
	svc := contactsrv.NewService(book, book)

	_, err := svc.AddInteraction(context.Background(), &contact.Interaction{ContactID: "nope"})
	var e *errx.Error
	if !errx.As(err, &e) || e.Code != contact.CodeNotFound.Code {
		t.Fatalf("expected contact not found, got %v", err)
	}
}
