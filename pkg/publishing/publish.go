package publishing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Publish registers new content: upload to the content store, ledger write,
// confirmation, id resolution, catalog invalidation. The upload happens
// strictly before the ledger write, so a failed upload leaves no partial
// state anywhere. A failure after a successful upload is surfaced as an
// OrphanedContentError carrying the content id; the caller resumes by
// setting PublishRequest.ContentID, which re-runs the registration against
// the already-stored bytes after an idempotency check.
func (s *service) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.Publisher.IsZero() {
		return nil, &InputError{Op: "publish", Err: ErrNoIdentity}
	}
	if req.Price < 0 {
		return nil, &InputError{Op: "publish", Err: ErrNegativePrice}
	}

	contentID := req.ContentID
	if contentID == "" {
		cid, err := s.uploadContent(ctx, req)
		if err != nil {
			return nil, err
		}
		contentID = cid
	} else {
		// Resuming after an orphaned-content failure. The earlier
		// write may have confirmed after the caller gave up, so check
		// before resubmitting; ids are never assigned twice for one
		// registration.
		if id, found, err := s.findArticle(ctx, contentID, req.Publisher); err != nil {
			return nil, &ReadError{Op: "publish idempotency check", ArticleID: -1, Err: err}
		} else if found {
			s.logger.Info("publish already confirmed, skipping resubmission",
				slog.String("content_id", contentID),
				slog.Int("article_id", id))
			return &PublishResult{ArticleID: id, ContentID: contentID}, nil
		}
	}

	var tx TxHandle
	err := s.retry.do(ctx, func() error {
		h, err := s.ledger.SubmitPublish(ctx, req.Publisher, req.Title, contentID, req.Price)
		if err != nil {
			return err
		}
		tx = h
		return nil
	})
	if err != nil {
		return nil, &OrphanedContentError{
			ContentID: contentID,
			Err:       &WriteError{Op: "publish", Err: err},
		}
	}

	status, err := s.ledger.AwaitConfirmation(ctx, tx)
	if err != nil || status != TxStatusConfirmed {
		if err == nil {
			err = fmt.Errorf("transaction status %s", status)
		}
		return nil, &OrphanedContentError{
			ContentID: contentID,
			Err:       &ConfirmationError{Op: "publish", Tx: tx, Err: err},
		}
	}

	id, err := s.resolvePublishedID(ctx, contentID, req.Publisher)
	if err != nil {
		return nil, err
	}

	s.invalidateCatalogs()

	article := Article{
		ID:        id,
		Title:     req.Title,
		ContentID: contentID,
		Price:     req.Price,
		Publisher: req.Publisher,
	}
	if err := s.eventSink.ArticlePublished(ctx, article, tx); err != nil {
		s.logger.Warn("article published event failed", slog.String("error", err.Error()))
	}

	s.logger.Info("article published",
		slog.Int("article_id", id),
		slog.String("content_id", contentID),
		slog.String("tx", string(tx)))

	return &PublishResult{ArticleID: id, ContentID: contentID, TxHash: tx}, nil
}

// uploadContent buffers and uploads the request bytes, returning the content
// id. The buffer makes retries safe: an io.Reader cannot be rewound.
func (s *service) uploadContent(ctx context.Context, req PublishRequest) (string, error) {
	if req.Content == nil {
		return "", &InputError{Op: "publish", Err: ErrEmptyContent}
	}
	data, err := io.ReadAll(req.Content)
	if err != nil {
		return "", &UploadError{Name: req.Title, Err: err}
	}
	if len(data) == 0 {
		return "", &InputError{Op: "publish", Err: ErrEmptyContent}
	}

	var contentID string
	err = s.retry.do(ctx, func() error {
		cid, err := s.store.Upload(ctx, bytes.NewReader(data), req.Title)
		if err != nil {
			return err
		}
		contentID = cid
		return nil
	})
	if err != nil {
		return "", &UploadError{Name: req.Title, Err: err}
	}
	return contentID, nil
}

// resolvePublishedID finds the id the ledger assigned to our own write. The
// ledger does not return ids synchronously, and count-1 is race-prone under
// concurrent publishers, so the id is resolved by matching
// (contentID, publisher) against a fresh enumeration scanning from the tail.
func (s *service) resolvePublishedID(ctx context.Context, contentID string, publisher Identity) (int, error) {
	id, found, err := s.findArticle(ctx, contentID, publisher)
	if err != nil {
		return 0, &ReadError{Op: "resolve published id", ArticleID: -1, Err: err}
	}
	if !found {
		return 0, &ConsistencyError{
			Op:        "publish",
			ArticleID: -1,
			Detail:    fmt.Sprintf("no article with content id %s by %s after confirmed write", contentID, publisher),
		}
	}
	return id, nil
}

// findArticle scans the ledger newest-first for an article matching
// (contentID, publisher). Newest-first keeps the common case cheap: the
// article being looked for was appended moments ago.
func (s *service) findArticle(ctx context.Context, contentID string, publisher Identity) (int, bool, error) {
	count, err := s.ledger.ArticleCount(ctx)
	if err != nil {
		return 0, false, err
	}
	for id := count - 1; id >= 0; id-- {
		rec, err := s.ledger.Article(ctx, id, publisher)
		if err != nil {
			return 0, false, err
		}
		if !rec.Exists {
			continue
		}
		if rec.ContentID == contentID && rec.Publisher == publisher {
			return id, true, nil
		}
	}
	return 0, false, nil
}
