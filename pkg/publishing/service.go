package publishing

import (
	"context"
	"io"
)

// Service is the publish/access workflow orchestrator. It sequences the
// content store and the ledger so the two systems never diverge: content is
// never registered before it is uploaded, and access is never reported
// unlocked before the paying write is confirmed.
type Service interface {
	// Write workflows. Each call either returns a confirmed result or a
	// typed failure from errors.go; bare transport errors never escape.
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
	Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error)
	GrantAccess(ctx context.Context, req GrantAccessRequest) (*GrantAccessResult, error)
	SupportAuthor(ctx context.Context, req SupportAuthorRequest) (*SupportAuthorResult, error)

	// Read side.
	Resolve(ctx context.Context, viewer Identity, articleID int) (Entitlement, error)
	BuildCatalog(ctx context.Context, req CatalogRequest) (*Catalog, error)
	ListAuthors(ctx context.Context) ([]Author, error)

	// ReadArticle resolves the viewer's entitlement and, if unlocked,
	// fetches the article bytes from the content store.
	ReadArticle(ctx context.Context, viewer Identity, articleID int) (io.ReadCloser, error)
}
