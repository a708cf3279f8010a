package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwire/publishinghub/pkg/publishing"
	"github.com/inkwire/publishinghub/pkg/publishing/ledger/memory"
)

const (
	alice = publishing.Identity("0xaaaa")
	bob   = publishing.Identity("0xbbbb")
)

// confirmPublish submits and settles one article.
func confirmPublish(t *testing.T, l *memory.Ledger, from publishing.Identity, title, cid string, price int64) {
	t.Helper()
	ctx := context.Background()

	tx, err := l.SubmitPublish(ctx, from, title, cid, price)
	require.NoError(t, err)

	status, err := l.AwaitConfirmation(ctx, tx)
	require.NoError(t, err)
	require.Equal(t, publishing.TxStatusConfirmed, status)
}

func TestSubmittedWritesAreNotAuthoritative(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	tx, err := l.SubmitPublish(ctx, alice, "Pending", "cid-1", 0)
	require.NoError(t, err)
	require.NotEmpty(t, tx)

	// Nothing applied yet: the write is journaled, not settled.
	count, err := l.ArticleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	status, err := l.AwaitConfirmation(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, publishing.TxStatusConfirmed, status)

	count, err = l.ArticleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAwaitConfirmationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	tx, err := l.SubmitPublish(ctx, alice, "Once", "cid-1", 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		status, err := l.AwaitConfirmation(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, publishing.TxStatusConfirmed, status)
	}

	count, err := l.ArticleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAwaitUnknownHandle(t *testing.T) {
	l := memory.New()

	_, err := l.AwaitConfirmation(context.Background(), "0xdeadbeef")
	assert.ErrorIs(t, err, memory.ErrUnknownTx)
}

func TestArticleRead(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	confirmPublish(t, l, alice, "Known", "cid-1", 42)

	t.Run("existing id", func(t *testing.T) {
		rec, err := l.Article(ctx, 0, bob)
		require.NoError(t, err)
		assert.True(t, rec.Exists)
		assert.Equal(t, "Known", rec.Title)
		assert.Equal(t, "cid-1", rec.ContentID)
		assert.Equal(t, int64(42), rec.Price)
		assert.Equal(t, alice, rec.Publisher)
	})

	t.Run("unassigned id", func(t *testing.T) {
		rec, err := l.Article(ctx, 5, bob)
		require.NoError(t, err)
		assert.False(t, rec.Exists)
	})

	t.Run("negative id", func(t *testing.T) {
		rec, err := l.Article(ctx, -1, bob)
		require.NoError(t, err)
		assert.False(t, rec.Exists)
	})
}

func TestPurchaseLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("exact value settles and unlocks", func(t *testing.T) {
		l := memory.New()
		confirmPublish(t, l, alice, "Paid", "cid-1", 100)

		tx, err := l.SubmitPurchase(ctx, bob, 0, 100)
		require.NoError(t, err)

		status, err := l.AwaitConfirmation(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, publishing.TxStatusConfirmed, status)

		ok, err := l.CheckAccess(ctx, bob, 0)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong value settles as failed", func(t *testing.T) {
		l := memory.New()
		confirmPublish(t, l, alice, "Paid", "cid-1", 100)

		tx, err := l.SubmitPurchase(ctx, bob, 0, 99)
		require.NoError(t, err)

		status, err := l.AwaitConfirmation(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, publishing.TxStatusFailed, status)

		ok, err := l.CheckAccess(ctx, bob, 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("purchase of unassigned id settles as failed", func(t *testing.T) {
		l := memory.New()

		tx, err := l.SubmitPurchase(ctx, bob, 3, 100)
		require.NoError(t, err)

		status, err := l.AwaitConfirmation(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, publishing.TxStatusFailed, status)
	})
}

func TestCheckAccess(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	confirmPublish(t, l, alice, "Free", "cid-free", 0)
	confirmPublish(t, l, alice, "Paid", "cid-paid", 100)

	t.Run("free article open to all", func(t *testing.T) {
		ok, err := l.CheckAccess(ctx, bob, 0)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("publisher has access to own paid article", func(t *testing.T) {
		ok, err := l.CheckAccess(ctx, alice, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stranger locked out of paid article", func(t *testing.T) {
		ok, err := l.CheckAccess(ctx, bob, 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unassigned id is never accessible", func(t *testing.T) {
		ok, err := l.CheckAccess(ctx, bob, 7)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGrant(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	confirmPublish(t, l, alice, "Paid", "cid-1", 100)

	t.Run("publisher grant unlocks grantee", func(t *testing.T) {
		tx, err := l.SubmitGrant(ctx, alice, bob, 0)
		require.NoError(t, err)

		status, err := l.AwaitConfirmation(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, publishing.TxStatusConfirmed, status)

		ok, err := l.CheckAccess(ctx, bob, 0)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("non publisher grant settles as failed", func(t *testing.T) {
		other := publishing.Identity("0xeeee")

		tx, err := l.SubmitGrant(ctx, bob, other, 0)
		require.NoError(t, err)

		status, err := l.AwaitConfirmation(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, publishing.TxStatusFailed, status)

		ok, err := l.CheckAccess(ctx, other, 0)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestAuthors(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	confirmPublish(t, l, alice, "A1", "cid-1", 0)
	confirmPublish(t, l, bob, "B1", "cid-2", 0)
	confirmPublish(t, l, alice, "A2", "cid-3", 0)

	authors, err := l.Authors(ctx)
	require.NoError(t, err)

	require.Len(t, authors, 2)
	assert.Equal(t, alice, authors[0].Address)
	assert.Equal(t, 2, authors[0].Count)
	assert.Equal(t, bob, authors[1].Address)
	assert.Equal(t, 1, authors[1].Count)
}

func TestSupport(t *testing.T) {
	ctx := context.Background()
	l := memory.New()

	tx, err := l.SubmitSupport(ctx, bob, alice, 250)
	require.NoError(t, err)

	// Journaled, not yet counted.
	assert.Equal(t, int64(0), l.SupportReceived(alice))

	status, err := l.AwaitConfirmation(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, publishing.TxStatusConfirmed, status)
	assert.Equal(t, int64(250), l.SupportReceived(alice))
}
