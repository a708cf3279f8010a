package publishing

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// BuildCatalog pages through every known article for the viewer and
// partitions them into public, owned and locked. The full (unfiltered) build
// is served from the per-viewer cache between confirmed writes; the optional
// search filter is applied to a copy afterwards and never changes partition
// membership.
func (s *service) BuildCatalog(ctx context.Context, req CatalogRequest) (*Catalog, error) {
	full, ok := s.cachedCatalog(req.Viewer, "")
	if !ok {
		var err error
		full, err = s.rebuildCatalog(ctx, req.Viewer)
		if err != nil {
			return nil, err
		}
	}

	if req.Search == "" {
		return full, nil
	}
	return filterCatalog(full, req.Search), nil
}

// rebuildCatalog performs the bulk read. Rebuilds are exclusive: concurrent
// callers for the same (or any) viewer queue on buildMu, and the second one
// through gets the first one's cached result.
func (s *service) rebuildCatalog(ctx context.Context, viewer Identity) (*Catalog, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if c, ok := s.cachedCatalog(viewer, ""); ok {
		return c, nil
	}

	var count int
	err := s.retry.do(ctx, func() error {
		n, err := s.ledger.ArticleCount(ctx)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	if err != nil {
		return nil, &ReadError{Op: "article count", ArticleID: -1, Err: err}
	}

	type entry struct {
		article  Article
		unlocked bool
		exists   bool
		failed   bool
	}
	entries := make([]entry, count)

	// Per-article reads are pure and independent, so they fan out; the
	// limit keeps bulk builds from overwhelming the ledger endpoint.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.catalogLimit)
	for id := 0; id < count; id++ {
		id := id
		g.Go(func() error {
			e := &entries[id]

			var rec ArticleRecord
			err := s.retry.do(gctx, func() error {
				r, err := s.ledger.Article(gctx, id, viewer)
				if err != nil {
					return err
				}
				rec = r
				return nil
			})
			if err != nil {
				// Reported, never silently dropped: a paid
				// article vanishing from every partition is a
				// correctness defect.
				e.failed = true
				s.logger.Warn("catalog read failed",
					slog.Int("article_id", id),
					slog.String("error", err.Error()))
				return nil
			}
			if !rec.Exists {
				return nil
			}

			e.exists = true
			e.article = Article{
				ID:        id,
				Title:     rec.Title,
				ContentID: rec.ContentID,
				Price:     rec.Price,
				Publisher: rec.Publisher,
			}
			if rec.Price == 0 {
				return nil
			}

			err = s.retry.do(gctx, func() error {
				ok, err := s.ledger.CheckAccess(gctx, viewer, id)
				if err != nil {
					return err
				}
				e.unlocked = ok
				return nil
			})
			if err != nil {
				e.failed = true
				s.logger.Warn("catalog access check failed",
					slog.Int("article_id", id),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &ReadError{Op: "catalog build", ArticleID: -1, Err: err}
	}

	catalog := &Catalog{
		Public: []Article{},
		Owned:  []Article{},
		Locked: []Article{},
	}
	for id := range entries {
		e := &entries[id]
		switch {
		case e.failed:
			catalog.Partial = true
			catalog.Failed = append(catalog.Failed, id)
		case !e.exists:
		case e.article.Price == 0:
			catalog.Public = append(catalog.Public, e.article)
		case e.unlocked:
			catalog.Owned = append(catalog.Owned, e.article)
		default:
			catalog.Locked = append(catalog.Locked, e.article)
		}
	}

	s.storeCatalog(viewer, catalog)
	return catalog, nil
}

// filterCatalog applies the case-insensitive substring filter over title and
// publisher to each partition independently.
func filterCatalog(c *Catalog, search string) *Catalog {
	needle := strings.ToLower(search)
	match := func(articles []Article) []Article {
		out := []Article{}
		for _, a := range articles {
			if strings.Contains(strings.ToLower(a.Title), needle) ||
				strings.Contains(strings.ToLower(string(a.Publisher)), needle) {
				out = append(out, a)
			}
		}
		return out
	}
	return &Catalog{
		Public:  match(c.Public),
		Owned:   match(c.Owned),
		Locked:  match(c.Locked),
		Partial: c.Partial,
		Failed:  c.Failed,
	}
}
