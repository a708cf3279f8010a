package publishing

import "context"

// NoopEventSink is an event sink that does nothing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-op event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (s *NoopEventSink) ArticlePublished(ctx context.Context, article Article, tx TxHandle) error {
	return nil
}

func (s *NoopEventSink) AccessPurchased(ctx context.Context, buyer Identity, articleID int, tx TxHandle) error {
	return nil
}

func (s *NoopEventSink) AccessGranted(ctx context.Context, grantee Identity, articleID int, tx TxHandle) error {
	return nil
}

func (s *NoopEventSink) AuthorSupported(ctx context.Context, supporter, author Identity, amount int64, tx TxHandle) error {
	return nil
}
