// Package postgres provides a pgx-backed ledger for development and
// integration environments where a real chain endpoint is unavailable. It
// keeps the registry semantics of the ledger interface (append-only
// sequential article ids, a journaled write lifecycle, price-enforced
// purchases) persisted across restarts.
//
// Expected schema (default schema name "ledger"):
//
//	CREATE TABLE ledger.articles (
//	    id         BIGINT PRIMARY KEY,
//	    title      TEXT NOT NULL,
//	    content_id TEXT NOT NULL,
//	    price      BIGINT NOT NULL CHECK (price >= 0),
//	    publisher  TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE ledger.access_grants (
//	    viewer     TEXT NOT NULL,
//	    article_id BIGINT NOT NULL REFERENCES ledger.articles(id),
//	    granted_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (viewer, article_id)
//	);
//	CREATE TABLE ledger.transactions (
//	    hash       TEXT PRIMARY KEY,
//	    kind       TEXT NOT NULL,
//	    status     TEXT NOT NULL,
//	    sender     TEXT NOT NULL,
//	    payload    JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    settled_at TIMESTAMPTZ
//	);
//	CREATE TABLE ledger.support_payments (
//	    tx_hash   TEXT PRIMARY KEY REFERENCES ledger.transactions(hash),
//	    supporter TEXT NOT NULL,
//	    author    TEXT NOT NULL,
//	    amount    BIGINT NOT NULL CHECK (amount > 0),
//	    paid_at   TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwire/publishinghub/pkg/publishing"
)

// ErrUnknownTx indicates an AwaitConfirmation call for a handle this ledger
// never issued.
var ErrUnknownTx = errors.New("unknown transaction handle")

const (
	txKindPublish  = "publish"
	txKindPurchase = "purchase"
	txKindGrant    = "grant"
	txKindSupport  = "support"
)

// Ledger implements publishing.Ledger using PostgreSQL
type Ledger struct {
	pool *pgxpool.Pool
}

var _ publishing.Ledger = (*Ledger)(nil)

// NewWithPool creates a new PostgreSQL ledger with a connection pool
func NewWithPool(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Error handling helper
func (l *Ledger) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "access_grants") {
				return fmt.Errorf("access already granted")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23514": // check_violation
			return fmt.Errorf("constraint %s violated", pgErr.ConstraintName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Reads

func (l *Ledger) ArticleCount(ctx context.Context) (int, error) {
	var count int
	err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger.articles`).Scan(&count)
	if err != nil {
		return 0, l.handlePostgresError("article count", err)
	}
	return count, nil
}

func (l *Ledger) Article(ctx context.Context, id int, viewer publishing.Identity) (publishing.ArticleRecord, error) {
	query := `
		SELECT title, content_id, price, publisher
		FROM ledger.articles WHERE id = $1`

	var rec publishing.ArticleRecord
	var publisher string
	err := l.pool.QueryRow(ctx, query, id).Scan(
		&rec.Title, &rec.ContentID, &rec.Price, &publisher)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return publishing.ArticleRecord{Exists: false}, nil
		}
		return publishing.ArticleRecord{}, l.handlePostgresError("get article", err)
	}
	rec.Publisher = publishing.Identity(publisher)
	rec.Exists = true
	return rec, nil
}

func (l *Ledger) CheckAccess(ctx context.Context, viewer publishing.Identity, id int) (bool, error) {
	query := `
		SELECT a.price = 0 OR a.publisher = $1 OR EXISTS (
			SELECT 1 FROM ledger.access_grants g
			WHERE g.viewer = $1 AND g.article_id = $2
		)
		FROM ledger.articles a WHERE a.id = $2`

	var ok bool
	err := l.pool.QueryRow(ctx, query, string(viewer), id).Scan(&ok)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, l.handlePostgresError("check access", err)
	}
	return ok, nil
}

func (l *Ledger) Authors(ctx context.Context) ([]publishing.AuthorCount, error) {
	query := `
		SELECT publisher, COUNT(*)
		FROM ledger.articles
		GROUP BY publisher
		ORDER BY MIN(id)`

	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, l.handlePostgresError("list authors", err)
	}
	defer rows.Close()

	var authors []publishing.AuthorCount
	for rows.Next() {
		var addr string
		var count int
		if err := rows.Scan(&addr, &count); err != nil {
			return nil, l.handlePostgresError("scan author", err)
		}
		authors = append(authors, publishing.AuthorCount{Address: publishing.Identity(addr), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, l.handlePostgresError("list authors", err)
	}
	return authors, nil
}

// Writes

type txPayload struct {
	Title     string `json:"title,omitempty"`
	ContentID string `json:"content_id,omitempty"`
	Price     int64  `json:"price,omitempty"`
	ArticleID int    `json:"article_id,omitempty"`
	Value     int64  `json:"value,omitempty"`
	Grantee   string `json:"grantee,omitempty"`
	Author    string `json:"author,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
}

func (l *Ledger) SubmitPublish(ctx context.Context, from publishing.Identity, title, contentID string, price int64) (publishing.TxHandle, error) {
	return l.submit(ctx, from, txKindPublish, txPayload{
		Title:     title,
		ContentID: contentID,
		Price:     price,
	})
}

func (l *Ledger) SubmitPurchase(ctx context.Context, from publishing.Identity, id int, value int64) (publishing.TxHandle, error) {
	return l.submit(ctx, from, txKindPurchase, txPayload{
		ArticleID: id,
		Value:     value,
	})
}

func (l *Ledger) SubmitGrant(ctx context.Context, from publishing.Identity, grantee publishing.Identity, id int) (publishing.TxHandle, error) {
	return l.submit(ctx, from, txKindGrant, txPayload{
		ArticleID: id,
		Grantee:   string(grantee),
	})
}

func (l *Ledger) SubmitSupport(ctx context.Context, from publishing.Identity, author publishing.Identity, amount int64) (publishing.TxHandle, error) {
	return l.submit(ctx, from, txKindSupport, txPayload{
		Author: string(author),
		Amount: amount,
	})
}

// submit journals the write as a pending transaction. Effects are applied at
// confirmation time, matching the non-authoritative-until-confirmed contract.
func (l *Ledger) submit(ctx context.Context, from publishing.Identity, kind string, payload txPayload) (publishing.TxHandle, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	hash := "0x" + uuid.NewString()
	query := `
		INSERT INTO ledger.transactions (hash, kind, status, sender, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = l.pool.Exec(ctx, query,
		hash, kind, string(publishing.TxStatusPending), string(from), body, time.Now().UTC())
	if err != nil {
		return "", l.handlePostgresError("submit "+kind, err)
	}
	return publishing.TxHandle(hash), nil
}

func (l *Ledger) AwaitConfirmation(ctx context.Context, txHandle publishing.TxHandle) (publishing.TxStatus, error) {
	dbtx, err := l.pool.Begin(ctx)
	if err != nil {
		return publishing.TxStatusPending, l.handlePostgresError("begin confirmation", err)
	}
	defer dbtx.Rollback(ctx)

	var kind, status, sender string
	var body []byte
	err = dbtx.QueryRow(ctx, `
		SELECT kind, status, sender, payload
		FROM ledger.transactions WHERE hash = $1 FOR UPDATE`,
		string(txHandle)).Scan(&kind, &status, &sender, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return publishing.TxStatusFailed, ErrUnknownTx
		}
		return publishing.TxStatusPending, l.handlePostgresError("load transaction", err)
	}

	// Already settled handles are idempotent to await.
	if status != string(publishing.TxStatusPending) {
		return publishing.TxStatus(status), nil
	}

	var payload txPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return publishing.TxStatusPending, fmt.Errorf("failed to decode payload: %w", err)
	}

	settled := publishing.TxStatusConfirmed
	if err := l.apply(ctx, dbtx, string(txHandle), publishing.Identity(sender), kind, payload); err != nil {
		// The write reverted; the journal records the failure and the
		// effect is discarded with the transaction rollback.
		settled = publishing.TxStatusFailed
		_ = dbtx.Rollback(ctx)

		dbtx, err = l.pool.Begin(ctx)
		if err != nil {
			return publishing.TxStatusPending, l.handlePostgresError("begin settle", err)
		}
		defer dbtx.Rollback(ctx)
	}

	_, err = dbtx.Exec(ctx, `
		UPDATE ledger.transactions SET status = $2, settled_at = $3 WHERE hash = $1`,
		string(txHandle), string(settled), time.Now().UTC())
	if err != nil {
		return publishing.TxStatusPending, l.handlePostgresError("settle transaction", err)
	}
	if err := dbtx.Commit(ctx); err != nil {
		return publishing.TxStatusPending, l.handlePostgresError("commit confirmation", err)
	}
	return settled, nil
}

// apply executes the journaled effect inside the settling transaction.
func (l *Ledger) apply(ctx context.Context, dbtx pgx.Tx, hash string, sender publishing.Identity, kind string, payload txPayload) error {
	switch kind {
	case txKindPublish:
		if payload.Price < 0 {
			return fmt.Errorf("negative price")
		}
		// Sequential append-only ids; the table lock avoids two
		// settling publishes racing for the same id.
		_, err := dbtx.Exec(ctx, `LOCK TABLE ledger.articles IN EXCLUSIVE MODE`)
		if err != nil {
			return err
		}
		_, err = dbtx.Exec(ctx, `
			INSERT INTO ledger.articles (id, title, content_id, price, publisher, created_at)
			SELECT COALESCE(MAX(id) + 1, 0), $1, $2, $3, $4, $5 FROM ledger.articles`,
			payload.Title, payload.ContentID, payload.Price, string(sender), time.Now().UTC())
		return err

	case txKindPurchase:
		var price int64
		err := dbtx.QueryRow(ctx,
			`SELECT price FROM ledger.articles WHERE id = $1`, payload.ArticleID).Scan(&price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("no such article")
			}
			return err
		}
		if payload.Value != price {
			return fmt.Errorf("value does not match article price")
		}
		_, err = dbtx.Exec(ctx, `
			INSERT INTO ledger.access_grants (viewer, article_id, granted_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (viewer, article_id) DO NOTHING`,
			string(sender), payload.ArticleID, time.Now().UTC())
		return err

	case txKindGrant:
		var publisher string
		err := dbtx.QueryRow(ctx,
			`SELECT publisher FROM ledger.articles WHERE id = $1`, payload.ArticleID).Scan(&publisher)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("no such article")
			}
			return err
		}
		if publisher != string(sender) {
			return fmt.Errorf("sender is not the publisher")
		}
		_, err = dbtx.Exec(ctx, `
			INSERT INTO ledger.access_grants (viewer, article_id, granted_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (viewer, article_id) DO NOTHING`,
			payload.Grantee, payload.ArticleID, time.Now().UTC())
		return err

	case txKindSupport:
		if payload.Amount <= 0 {
			return fmt.Errorf("non-positive support amount")
		}
		_, err := dbtx.Exec(ctx, `
			INSERT INTO ledger.support_payments (tx_hash, supporter, author, amount, paid_at)
			VALUES ($1, $2, $3, $4, $5)`,
			hash, string(sender), payload.Author, payload.Amount, time.Now().UTC())
		return err

	default:
		return fmt.Errorf("unknown transaction kind %q", kind)
	}
}
