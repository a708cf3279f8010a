package publishing

import (
	"context"
	"io"
)

// ContentStore is an external content-addressed byte store. Uploading the
// same bytes twice may or may not return the same content id depending on
// whether the backing store deduplicates; the core never relies on either
// behavior.
type ContentStore interface {
	// Upload stores the bytes read from r and returns their content id.
	Upload(ctx context.Context, r io.Reader, name string) (string, error)

	// Fetch returns a reader over the bytes addressed by contentID.
	Fetch(ctx context.Context, contentID string) (io.ReadCloser, error)
}

// ArticleRecord is the canonical ledger read shape for one article. Exists
// reports whether the id is assigned at all; a record with Exists=false is
// "no such article" and must never be confused with a zero-price article.
type ArticleRecord struct {
	Title     string
	ContentID string
	Price     int64
	Publisher Identity
	Exists    bool
}

// AuthorCount is one row of the ledger's author enumeration.
type AuthorCount struct {
	Address Identity
	Count   int
}

// Ledger is the external system of record for article metadata, pricing and
// access grants. Writes return a TxHandle which must be awaited to
// confirmation before any side effect is trusted; the ledger provides no
// read-your-own-write guarantee for unconfirmed handles.
//
// Every write takes the sender identity explicitly. The core holds no
// signing or wallet state.
type Ledger interface {
	// Reads.
	ArticleCount(ctx context.Context) (int, error)
	Article(ctx context.Context, id int, viewer Identity) (ArticleRecord, error)
	CheckAccess(ctx context.Context, viewer Identity, id int) (bool, error)
	Authors(ctx context.Context) ([]AuthorCount, error)

	// Writes.
	SubmitPublish(ctx context.Context, from Identity, title, contentID string, price int64) (TxHandle, error)
	SubmitPurchase(ctx context.Context, from Identity, id int, value int64) (TxHandle, error)
	SubmitGrant(ctx context.Context, from Identity, grantee Identity, id int) (TxHandle, error)
	SubmitSupport(ctx context.Context, from Identity, author Identity, amount int64) (TxHandle, error)

	// AwaitConfirmation blocks until the handle reaches a terminal status
	// or ctx is done. A returned TxStatusFailed means the write reverted.
	AwaitConfirmation(ctx context.Context, tx TxHandle) (TxStatus, error)
}

// EventSink receives notifications after workflow side effects confirm.
type EventSink interface {
	// ArticlePublished is fired after a publish confirms and the new id
	// has been resolved.
	ArticlePublished(ctx context.Context, article Article, tx TxHandle) error

	// AccessPurchased is fired after a purchase confirms and the buyer's
	// entitlement has been re-verified.
	AccessPurchased(ctx context.Context, buyer Identity, articleID int, tx TxHandle) error

	// AccessGranted is fired after a publisher grant confirms.
	AccessGranted(ctx context.Context, grantee Identity, articleID int, tx TxHandle) error

	// AuthorSupported is fired after a patronage payment confirms.
	AuthorSupported(ctx context.Context, supporter, author Identity, amount int64, tx TxHandle) error
}
