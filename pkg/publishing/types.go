package publishing

import "sort"

// Identity is the ledger account an operation acts as. The core never holds
// wallet or session state; callers pass the viewer or sender explicitly.
type Identity string

// ZeroIdentity is the anonymous viewer used for unauthenticated reads.
const ZeroIdentity Identity = ""

// IsZero reports whether the identity is the anonymous viewer.
func (id Identity) IsZero() bool { return id == ZeroIdentity }

// TxHandle is an opaque handle for a submitted ledger write. A handle by
// itself proves nothing: no state change may be assumed until the handle has
// been awaited to TxStatusConfirmed.
type TxHandle string

// TxStatus is the lifecycle state of a submitted ledger write.
type TxStatus string

// Transaction status constants (typed).
const (
	TxStatusSubmitted TxStatus = "submitted"
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// Entitlement is the resolved access state of one (identity, article) pair.
type Entitlement string

// Entitlement constants (typed).
const (
	EntitlementUnlocked Entitlement = "unlocked"
	EntitlementLocked   Entitlement = "locked"
)

// Article is a ledger-registered document. All fields are immutable once the
// publishing write confirms; the ID is assigned sequentially by the ledger
// and never reused.
type Article struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	ContentID string   `json:"content_id"`
	Price     int64    `json:"price"`
	Publisher Identity `json:"publisher"`
}

// Free reports whether the article is publicly readable for every identity.
func (a Article) Free() bool { return a.Price == 0 }

// Author is a read-side projection: an identity plus how many articles it has
// published. It is never persisted by the core.
type Author struct {
	Address      Identity `json:"address"`
	ArticleCount int      `json:"article_count"`
}

// Catalog partitions every known article for one viewer. The three partitions
// are disjoint and, when Partial is false, their union is the full article
// set. Each partition is ordered ascending by id.
type Catalog struct {
	Public []Article `json:"public"`
	Owned  []Article `json:"owned"`
	Locked []Article `json:"locked"`

	// Partial is set when one or more per-article reads failed after
	// retries. The ids that could not be read are listed in Failed; they
	// are reported rather than silently dropped from all partitions.
	Partial bool  `json:"partial,omitempty"`
	Failed  []int `json:"failed,omitempty"`
}

// Articles returns all partitions flattened, ascending by id.
func (c *Catalog) Articles() []Article {
	out := make([]Article, 0, len(c.Public)+len(c.Owned)+len(c.Locked))
	out = append(out, c.Public...)
	out = append(out, c.Owned...)
	out = append(out, c.Locked...)
	sortArticlesByID(out)
	return out
}

func sortArticlesByID(articles []Article) {
	sort.Slice(articles, func(i, j int) bool { return articles[i].ID < articles[j].ID })
}
