package drafting

import (
	"context"

	"github.com/Abraxas-365/manifesto/pkg/ai/llm"
	"github.com/Abraxas-365/manifesto/pkg/kernel"
)

// Repository persists drafts.
type Repository interface {
	Save(ctx context.Context, d *Draft) error
	Get(ctx context.Context, id string) (*Draft, error)
	ListByContact(ctx context.Context, contactID string, opts kernel.PaginationOptions) (kernel.Paginated[Draft], error)
	Delete(ctx context.Context, id string) error
}

// ChatModel is the slice of the LLM client the drafting flow needs.
type ChatModel interface {
	Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error)
}
