package publishing

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrEmptyContent indicates a publish request carried no bytes
	ErrEmptyContent = errors.New("article content is empty")

	// ErrNegativePrice indicates a publish request carried a negative price
	ErrNegativePrice = errors.New("article price is negative")

	// ErrSelfPurchase indicates an identity tried to purchase its own article
	ErrSelfPurchase = errors.New("publisher cannot purchase own article")

	// ErrNotPublisher indicates a grant was attempted by a non-publisher
	ErrNotPublisher = errors.New("only the publisher can grant access")

	// ErrInvalidAmount indicates a support payment with a non-positive amount
	ErrInvalidAmount = errors.New("support amount must be positive")

	// ErrNoIdentity indicates a call that requires a sender had none
	ErrNoIdentity = errors.New("identity is required")

	// ErrArticleNotFound indicates the ledger has no article with this id
	ErrArticleNotFound = errors.New("article not found")

	// ErrAccessDenied indicates a gated read by a locked viewer
	ErrAccessDenied = errors.New("access denied")
)

// InputError rejects bad arguments before any I/O is attempted. It is never
// retried automatically and always reaches the caller.
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// UploadError wraps a content store failure. The upload is retryable with
// identical input; no ledger write was attempted.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %q failed: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// WriteError wraps a ledger write submission that failed before producing a
// handle. Resubmission is safe.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ledger write %s failed: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ConfirmationError wraps a write that produced a handle but never reached
// confirmed state. The original write may still land later, so a retry must
// run an idempotency check before resubmitting.
type ConfirmationError struct {
	Op  string
	Tx  TxHandle
	Err error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("ledger write %s (tx %s) was not confirmed: %v", e.Op, e.Tx, e.Err)
}

func (e *ConfirmationError) Unwrap() error {
	return e.Err
}

// ConsistencyError reports a confirmed write whose expected side effect could
// not be observed. It indicates a model mismatch between the orchestrator and
// the ledger and is never retried automatically.
type ConsistencyError struct {
	Op        string
	ArticleID int
	Detail    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s confirmed but article %d is inconsistent: %s", e.Op, e.ArticleID, e.Detail)
}

// ReadError wraps a failed ledger or entitlement read. Reads are retried
// per item; survivors are flagged as partial results, not discarded.
type ReadError struct {
	Op        string
	ArticleID int
	Err       error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s for article %d failed: %v", e.Op, e.ArticleID, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// OrphanedContentError reports bytes that reached the content store without a
// corresponding ledger entry. ContentID lets the caller retry the ledger
// registration without re-uploading.
type OrphanedContentError struct {
	ContentID string
	Err       error
}

func (e *OrphanedContentError) Error() string {
	return fmt.Sprintf("content %s uploaded but not registered: %v", e.ContentID, e.Err)
}

func (e *OrphanedContentError) Unwrap() error {
	return e.Err
}
