package publishing

import "io"

// Request/Response DTOs

// PublishRequest contains parameters for registering new content.
type PublishRequest struct {
	Publisher Identity
	Title     string
	Content   io.Reader
	Price     int64

	// ContentID resumes a publish whose upload already succeeded but
	// whose ledger registration failed (see OrphanedContentError). When
	// set, Content is ignored and no upload is performed.
	ContentID string
}

// PublishResult is the confirmed outcome of a publish.
type PublishResult struct {
	ArticleID int      `json:"article_id"`
	ContentID string   `json:"content_id"`
	TxHash    TxHandle `json:"tx_hash"`
}

// PurchaseRequest contains parameters for unlocking a paid article.
type PurchaseRequest struct {
	Buyer     Identity
	ArticleID int

	// Price is the value carried by the payment write. The ledger
	// enforces the current on-chain price; a stale client price is
	// rejected there, not assumed correct here.
	Price int64
}

// PurchaseResult is the confirmed outcome of a purchase.
type PurchaseResult struct {
	TxHash TxHandle `json:"tx_hash"`
}

// GrantAccessRequest contains parameters for a publisher granting free access.
type GrantAccessRequest struct {
	Publisher Identity
	Grantee   Identity
	ArticleID int
}

// GrantAccessResult is the confirmed outcome of a grant.
type GrantAccessResult struct {
	TxHash TxHandle `json:"tx_hash"`
}

// SupportAuthorRequest contains parameters for a patronage payment.
type SupportAuthorRequest struct {
	Supporter Identity
	Author    Identity
	Amount    int64
}

// SupportAuthorResult is the confirmed outcome of a support payment.
type SupportAuthorResult struct {
	TxHash TxHandle `json:"tx_hash"`
}

// CatalogRequest contains parameters for building a viewer's catalog.
type CatalogRequest struct {
	Viewer Identity

	// Search is an optional case-insensitive substring filter over title
	// and publisher. It is applied after partitioning and never changes
	// which partition an article belongs to.
	Search string
}
