package publishing

import (
	"context"
	"fmt"
	"log/slog"
)

// Purchase unlocks a paid article for the buyer: payment write, confirmation,
// entitlement re-check. The carried price is enforced by the ledger against
// the current on-chain price; the core only rejects what it can decide
// without I/O beyond the article read (self-purchase).
func (s *service) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if req.Buyer.IsZero() {
		return nil, &InputError{Op: "purchase", Err: ErrNoIdentity}
	}

	rec, err := s.ledger.Article(ctx, req.ArticleID, req.Buyer)
	if err != nil {
		return nil, &ReadError{Op: "purchase precheck", ArticleID: req.ArticleID, Err: err}
	}
	if !rec.Exists {
		return nil, &InputError{Op: "purchase", Err: ErrArticleNotFound}
	}
	if rec.Publisher == req.Buyer {
		return nil, &InputError{Op: "purchase", Err: ErrSelfPurchase}
	}

	// An earlier payment may have confirmed after the caller gave up on it,
	// so check the entitlement before resubmitting; a buyer who is already
	// unlocked must never pay twice.
	var unlocked bool
	err = s.retry.do(ctx, func() error {
		ok, err := s.ledger.CheckAccess(ctx, req.Buyer, req.ArticleID)
		if err != nil {
			return err
		}
		unlocked = ok
		return nil
	})
	if err != nil {
		return nil, &ReadError{Op: "purchase idempotency check", ArticleID: req.ArticleID, Err: err}
	}
	if unlocked {
		s.logger.Info("purchase already confirmed, skipping resubmission",
			slog.Int("article_id", req.ArticleID),
			slog.String("buyer", string(req.Buyer)))
		return &PurchaseResult{}, nil
	}

	var tx TxHandle
	err = s.retry.do(ctx, func() error {
		h, err := s.ledger.SubmitPurchase(ctx, req.Buyer, req.ArticleID, req.Price)
		if err != nil {
			return err
		}
		tx = h
		return nil
	})
	if err != nil {
		return nil, &WriteError{Op: "purchase", Err: err}
	}

	status, err := s.ledger.AwaitConfirmation(ctx, tx)
	if err != nil || status != TxStatusConfirmed {
		if err == nil {
			err = fmt.Errorf("transaction status %s", status)
		}
		return nil, &ConfirmationError{Op: "purchase", Tx: tx, Err: err}
	}

	// The payment confirmed; the access predicate must now agree. If it
	// does not, the ledger's purchase function and access check disagree
	// with each other, which is a fault distinct from a failed write.
	ent, err := s.Resolve(ctx, req.Buyer, req.ArticleID)
	if err != nil {
		return nil, err
	}
	if ent != EntitlementUnlocked {
		return nil, &ConsistencyError{
			Op:        "purchase",
			ArticleID: req.ArticleID,
			Detail:    "payment confirmed but access check still reports locked",
		}
	}

	s.invalidateCatalogs()

	if err := s.eventSink.AccessPurchased(ctx, req.Buyer, req.ArticleID, tx); err != nil {
		s.logger.Warn("access purchased event failed", slog.String("error", err.Error()))
	}

	s.logger.Info("article purchased",
		slog.Int("article_id", req.ArticleID),
		slog.String("buyer", string(req.Buyer)),
		slog.String("tx", string(tx)))

	return &PurchaseResult{TxHash: tx}, nil
}

// GrantAccess lets a publisher unlock an article for another identity without
// payment. The publisher check is policy enforced here, before submission.
func (s *service) GrantAccess(ctx context.Context, req GrantAccessRequest) (*GrantAccessResult, error) {
	if req.Publisher.IsZero() || req.Grantee.IsZero() {
		return nil, &InputError{Op: "grant", Err: ErrNoIdentity}
	}

	rec, err := s.ledger.Article(ctx, req.ArticleID, req.Publisher)
	if err != nil {
		return nil, &ReadError{Op: "grant precheck", ArticleID: req.ArticleID, Err: err}
	}
	if !rec.Exists {
		return nil, &InputError{Op: "grant", Err: ErrArticleNotFound}
	}
	if rec.Publisher != req.Publisher {
		return nil, &InputError{Op: "grant", Err: ErrNotPublisher}
	}

	var tx TxHandle
	err = s.retry.do(ctx, func() error {
		h, err := s.ledger.SubmitGrant(ctx, req.Publisher, req.Grantee, req.ArticleID)
		if err != nil {
			return err
		}
		tx = h
		return nil
	})
	if err != nil {
		return nil, &WriteError{Op: "grant", Err: err}
	}

	status, err := s.ledger.AwaitConfirmation(ctx, tx)
	if err != nil || status != TxStatusConfirmed {
		if err == nil {
			err = fmt.Errorf("transaction status %s", status)
		}
		return nil, &ConfirmationError{Op: "grant", Tx: tx, Err: err}
	}

	s.invalidateCatalogs()

	if err := s.eventSink.AccessGranted(ctx, req.Grantee, req.ArticleID, tx); err != nil {
		s.logger.Warn("access granted event failed", slog.String("error", err.Error()))
	}

	return &GrantAccessResult{TxHash: tx}, nil
}

// SupportAuthor sends a patronage payment. It has no entitlement effect and
// therefore does not touch the catalog cache.
func (s *service) SupportAuthor(ctx context.Context, req SupportAuthorRequest) (*SupportAuthorResult, error) {
	if req.Supporter.IsZero() || req.Author.IsZero() {
		return nil, &InputError{Op: "support", Err: ErrNoIdentity}
	}
	if req.Amount <= 0 {
		return nil, &InputError{Op: "support", Err: ErrInvalidAmount}
	}

	var tx TxHandle
	err := s.retry.do(ctx, func() error {
		h, err := s.ledger.SubmitSupport(ctx, req.Supporter, req.Author, req.Amount)
		if err != nil {
			return err
		}
		tx = h
		return nil
	})
	if err != nil {
		return nil, &WriteError{Op: "support", Err: err}
	}

	status, err := s.ledger.AwaitConfirmation(ctx, tx)
	if err != nil || status != TxStatusConfirmed {
		if err == nil {
			err = fmt.Errorf("transaction status %s", status)
		}
		return nil, &ConfirmationError{Op: "support", Tx: tx, Err: err}
	}

	if err := s.eventSink.AuthorSupported(ctx, req.Supporter, req.Author, req.Amount, tx); err != nil {
		s.logger.Warn("author supported event failed", slog.String("error", err.Error()))
	}

	return &SupportAuthorResult{TxHash: tx}, nil
}
