package publishing_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwire/publishinghub/pkg/publishing"
	memorystore "github.com/inkwire/publishinghub/pkg/publishing/contentstore/memory"
	memoryledger "github.com/inkwire/publishinghub/pkg/publishing/ledger/memory"
)

// lockedAccessLedger confirms payment writes but its access check never
// agrees: the registry and access predicate contradict each other.
type lockedAccessLedger struct {
	*memoryledger.Ledger
}

func (l *lockedAccessLedger) CheckAccess(ctx context.Context, viewer publishing.Identity, id int) (bool, error) {
	return false, nil
}

// vanishingLedger confirms publish writes but never shows the article in its
// detail reads, so a confirmed registration can never be resolved to an id.
type vanishingLedger struct {
	*memoryledger.Ledger
}

func (l *vanishingLedger) Article(ctx context.Context, id int, viewer publishing.Identity) (publishing.ArticleRecord, error) {
	return publishing.ArticleRecord{}, nil
}

func newServiceWith(t *testing.T, ledger publishing.Ledger) publishing.Service {
	t.Helper()

	svc, err := publishing.New(
		publishing.WithLedger(ledger),
		publishing.WithContentStore(memorystore.New()),
		publishing.WithRetryPolicy(testRetryPolicy()),
	)
	require.NoError(t, err)
	return svc
}

func TestConsistencyFaults(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed payment with disagreeing access check", func(t *testing.T) {
		inner := memoryledger.New()
		svc := newServiceWith(t, &lockedAccessLedger{Ledger: inner})

		// Register the article directly so the publish path, which does
		// not consult the access check, is unaffected by the stub.
		tx, err := inner.SubmitPublish(ctx, alice, "Contradiction", "cid-1", 100)
		require.NoError(t, err)
		status, err := inner.AwaitConfirmation(ctx, tx)
		require.NoError(t, err)
		require.Equal(t, publishing.TxStatusConfirmed, status)

		result, err := svc.Purchase(ctx, publishing.PurchaseRequest{
			Buyer:     bob,
			ArticleID: 0,
			Price:     100,
		})

		assert.Nil(t, result)
		var consistencyErr *publishing.ConsistencyError
		require.ErrorAs(t, err, &consistencyErr)
		assert.Equal(t, 0, consistencyErr.ArticleID)

		// Distinct from a reverted or unconfirmed write.
		var confirmErr *publishing.ConfirmationError
		assert.False(t, errors.As(err, &confirmErr))
	})

	t.Run("confirmed publish that never becomes readable", func(t *testing.T) {
		svc := newServiceWith(t, &vanishingLedger{Ledger: memoryledger.New()})

		result, err := svc.Publish(ctx, publishing.PublishRequest{
			Publisher: alice,
			Title:     "Ghost",
			Content:   strings.NewReader("ghost body"),
		})

		assert.Nil(t, result)
		var consistencyErr *publishing.ConsistencyError
		require.ErrorAs(t, err, &consistencyErr)

		var orphanErr *publishing.OrphanedContentError
		assert.False(t, errors.As(err, &orphanErr))
	})
}
