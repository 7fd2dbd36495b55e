package contact

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// Repository persists contacts.
type Repository interface {
	Save(ctx context.Context, c *Contact) error
	Get(ctx context.Context, id string) (*Contact, error)
	// FindByEmail resolves a contact by normalized address; used by the
	// journal when a queue record carries no contact reference.
	FindByEmail(ctx context.Context, email string) (*Contact, error)
	List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[Contact], error)
	Search(ctx context.Context, query string, opts kernel.PaginationOptions) (kernel.Paginated[Contact], error)
	Delete(ctx context.Context, id string) error
}

// InteractionRepository persists timeline entries.
type InteractionRepository interface {
	Create(ctx context.Context, i *Interaction) error
	ListByContact(ctx context.Context, contactID string, opts kernel.PaginationOptions) (kernel.Paginated[Interaction], error)
}
