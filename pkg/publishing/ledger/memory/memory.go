// Package memory provides an in-memory ledger that simulates an article
// registry with the full transaction lifecycle: writes are journaled as
// pending transactions and take effect only when awaited to confirmation, so
// orchestration code exercised against it cannot get away with trusting an
// unconfirmed handle.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwire/publishinghub/pkg/publishing"
)

var (
	// ErrUnknownTx indicates an AwaitConfirmation call for a handle this
	// ledger never issued.
	ErrUnknownTx = errors.New("unknown transaction handle")

	// ErrPriceMismatch indicates a purchase whose carried value does not
	// match the article's current price. The write reverts.
	ErrPriceMismatch = errors.New("value does not match article price")

	// ErrNoSuchArticle indicates a write against an unassigned id.
	ErrNoSuchArticle = errors.New("no such article")
)

type article struct {
	title     string
	contentID string
	price     int64
	publisher publishing.Identity
}

type accessKey struct {
	viewer publishing.Identity
	id     int
}

type pendingTx struct {
	status publishing.TxStatus
	apply  func() error
}

type injectedFailure struct {
	err       error
	remaining int
}

// Ledger is an in-memory implementation of the publishing.Ledger interface
type Ledger struct {
	mu       sync.Mutex
	articles []article
	access   map[accessKey]bool
	support  map[publishing.Identity]int64
	txs      map[publishing.TxHandle]*pendingTx

	confirmDelay time.Duration

	// Failure injection, consumed by tests.
	writeFailure   *injectedFailure
	confirmFailure *injectedFailure
	articleFailure map[int]*injectedFailure
}

var _ publishing.Ledger = (*Ledger)(nil)

// New creates a new in-memory ledger
func New() *Ledger {
	return &Ledger{
		access:         make(map[accessKey]bool),
		support:        make(map[publishing.Identity]int64),
		txs:            make(map[publishing.TxHandle]*pendingTx),
		articleFailure: make(map[int]*injectedFailure),
	}
}

// SetConfirmDelay makes every AwaitConfirmation wait d before settling.
func (l *Ledger) SetConfirmDelay(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirmDelay = d
}

// FailWrites makes the next n write submissions fail with err.
func (l *Ledger) FailWrites(err error, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeFailure = &injectedFailure{err: err, remaining: n}
}

// FailConfirmations makes the next n awaited transactions settle as failed.
// The journaled write is discarded, as a reverted transaction would be.
func (l *Ledger) FailConfirmations(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirmFailure = &injectedFailure{err: errors.New("transaction reverted"), remaining: n}
}

// FailArticleReads makes the next n detail reads of id fail with err.
func (l *Ledger) FailArticleReads(id, n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.articleFailure[id] = &injectedFailure{err: err, remaining: n}
}

func consume(f **injectedFailure) error {
	if *f == nil || (*f).remaining == 0 {
		return nil
	}
	(*f).remaining--
	err := (*f).err
	if (*f).remaining == 0 {
		*f = nil
	}
	return err
}

// Reads

func (l *Ledger) ArticleCount(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.articles), nil
}

func (l *Ledger) Article(ctx context.Context, id int, viewer publishing.Identity) (publishing.ArticleRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f := l.articleFailure[id]; f != nil && f.remaining > 0 {
		f.remaining--
		return publishing.ArticleRecord{}, f.err
	}

	if id < 0 || id >= len(l.articles) {
		return publishing.ArticleRecord{Exists: false}, nil
	}
	a := l.articles[id]
	return publishing.ArticleRecord{
		Title:     a.title,
		ContentID: a.contentID,
		Price:     a.price,
		Publisher: a.publisher,
		Exists:    true,
	}, nil
}

func (l *Ledger) CheckAccess(ctx context.Context, viewer publishing.Identity, id int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id < 0 || id >= len(l.articles) {
		return false, nil
	}
	a := l.articles[id]
	if a.price == 0 {
		return true, nil
	}
	if a.publisher == viewer {
		return true, nil
	}
	return l.access[accessKey{viewer: viewer, id: id}], nil
}

func (l *Ledger) Authors(ctx context.Context) ([]publishing.AuthorCount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[publishing.Identity]int)
	var order []publishing.Identity
	for _, a := range l.articles {
		if counts[a.publisher] == 0 {
			order = append(order, a.publisher)
		}
		counts[a.publisher]++
	}

	out := make([]publishing.AuthorCount, 0, len(order))
	for _, addr := range order {
		out = append(out, publishing.AuthorCount{Address: addr, Count: counts[addr]})
	}
	return out, nil
}

// SupportReceived reports the confirmed patronage total for an author.
func (l *Ledger) SupportReceived(author publishing.Identity) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.support[author]
}

// Writes

func (l *Ledger) SubmitPublish(ctx context.Context, from publishing.Identity, title, contentID string, price int64) (publishing.TxHandle, error) {
	return l.submit(func() error {
		if price < 0 {
			return fmt.Errorf("negative price")
		}
		l.articles = append(l.articles, article{
			title:     title,
			contentID: contentID,
			price:     price,
			publisher: from,
		})
		return nil
	})
}

func (l *Ledger) SubmitPurchase(ctx context.Context, from publishing.Identity, id int, value int64) (publishing.TxHandle, error) {
	return l.submit(func() error {
		if id < 0 || id >= len(l.articles) {
			return ErrNoSuchArticle
		}
		if value != l.articles[id].price {
			return ErrPriceMismatch
		}
		l.access[accessKey{viewer: from, id: id}] = true
		return nil
	})
}

func (l *Ledger) SubmitGrant(ctx context.Context, from publishing.Identity, grantee publishing.Identity, id int) (publishing.TxHandle, error) {
	return l.submit(func() error {
		if id < 0 || id >= len(l.articles) {
			return ErrNoSuchArticle
		}
		if l.articles[id].publisher != from {
			return fmt.Errorf("sender is not the publisher")
		}
		l.access[accessKey{viewer: grantee, id: id}] = true
		return nil
	})
}

func (l *Ledger) SubmitSupport(ctx context.Context, from publishing.Identity, author publishing.Identity, amount int64) (publishing.TxHandle, error) {
	return l.submit(func() error {
		if amount <= 0 {
			return fmt.Errorf("non-positive support amount")
		}
		l.support[author] += amount
		return nil
	})
}

// submit journals the write. Nothing is applied until the handle is awaited:
// a submitted transaction is not authoritative.
func (l *Ledger) submit(apply func() error) (publishing.TxHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := consume(&l.writeFailure); err != nil {
		return "", err
	}

	handle := publishing.TxHandle("0x" + uuid.NewString())
	l.txs[handle] = &pendingTx{
		status: publishing.TxStatusPending,
		apply:  apply,
	}
	return handle, nil
}

func (l *Ledger) AwaitConfirmation(ctx context.Context, tx publishing.TxHandle) (publishing.TxStatus, error) {
	l.mu.Lock()
	delay := l.confirmDelay
	l.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return publishing.TxStatusPending, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.txs[tx]
	if !ok {
		return publishing.TxStatusFailed, ErrUnknownTx
	}
	if p.status != publishing.TxStatusPending {
		return p.status, nil
	}

	if err := consume(&l.confirmFailure); err != nil {
		p.status = publishing.TxStatusFailed
		return p.status, nil
	}

	if err := p.apply(); err != nil {
		p.status = publishing.TxStatusFailed
		return p.status, nil
	}
	p.status = publishing.TxStatusConfirmed
	return p.status, nil
}
