package publishing

import (
	"context"
	"errors"
	"io"
)

// Resolve determines whether viewer may read the full content of articleID.
// Free articles are unlocked for every identity, including one the ledger has
// never seen; everything else is decided by the ledger's access check at the
// time of the call. The result is valid only until the next confirmed write
// or identity switch, which is why it is derived fresh here instead of
// cached.
func (s *service) Resolve(ctx context.Context, viewer Identity, articleID int) (Entitlement, error) {
	rec, err := s.readArticleRecord(ctx, articleID, viewer)
	if err != nil {
		return EntitlementLocked, err
	}

	if rec.Price == 0 {
		return EntitlementUnlocked, nil
	}

	var unlocked bool
	err = s.retry.do(ctx, func() error {
		ok, err := s.ledger.CheckAccess(ctx, viewer, articleID)
		if err != nil {
			return err
		}
		unlocked = ok
		return nil
	})
	if err != nil {
		return EntitlementLocked, &ReadError{Op: "access check", ArticleID: articleID, Err: err}
	}

	if unlocked {
		return EntitlementUnlocked, nil
	}
	return EntitlementLocked, nil
}

// ReadArticle is the gated content read: entitlement first, then the content
// store. A locked viewer gets ErrAccessDenied without the store ever being
// contacted.
func (s *service) ReadArticle(ctx context.Context, viewer Identity, articleID int) (io.ReadCloser, error) {
	rec, err := s.readArticleRecord(ctx, articleID, viewer)
	if err != nil {
		return nil, err
	}

	ent, err := s.Resolve(ctx, viewer, articleID)
	if err != nil {
		return nil, err
	}
	if ent != EntitlementUnlocked {
		return nil, ErrAccessDenied
	}

	rc, err := s.store.Fetch(ctx, rec.ContentID)
	if err != nil {
		return nil, &ReadError{Op: "content fetch", ArticleID: articleID, Err: err}
	}
	return rc, nil
}

// ListAuthors returns the author projection: each publishing identity with
// its article count.
func (s *service) ListAuthors(ctx context.Context) ([]Author, error) {
	var rows []AuthorCount
	err := s.retry.do(ctx, func() error {
		r, err := s.ledger.Authors(ctx)
		if err != nil {
			return err
		}
		rows = r
		return nil
	})
	if err != nil {
		return nil, &ReadError{Op: "list authors", ArticleID: -1, Err: err}
	}

	authors := make([]Author, 0, len(rows))
	for _, row := range rows {
		authors = append(authors, Author{Address: row.Address, ArticleCount: row.Count})
	}
	return authors, nil
}

// readArticleRecord reads one article with retries, mapping a missing id to
// ErrArticleNotFound.
func (s *service) readArticleRecord(ctx context.Context, articleID int, viewer Identity) (ArticleRecord, error) {
	var rec ArticleRecord
	err := s.retry.do(ctx, func() error {
		r, err := s.ledger.Article(ctx, articleID, viewer)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrArticleNotFound) {
			return ArticleRecord{}, ErrArticleNotFound
		}
		return ArticleRecord{}, &ReadError{Op: "article read", ArticleID: articleID, Err: err}
	}
	if !rec.Exists {
		return ArticleRecord{}, ErrArticleNotFound
	}
	return rec, nil
}
