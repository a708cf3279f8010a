package publishing_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwire/publishinghub/pkg/publishing"
	memorystore "github.com/inkwire/publishinghub/pkg/publishing/contentstore/memory"
	memoryledger "github.com/inkwire/publishinghub/pkg/publishing/ledger/memory"
)

const (
	alice = publishing.Identity("0xaaaa")
	bob   = publishing.Identity("0xbbbb")
	carol = publishing.Identity("0xcccc")
)

// testRetryPolicy keeps retry backoff out of test wall time.
func testRetryPolicy() publishing.RetryPolicy {
	return publishing.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}
}

type fixture struct {
	svc    publishing.Service
	ledger *memoryledger.Ledger
	store  *memorystore.Store
}

func newFixture(t *testing.T, extra ...publishing.Option) *fixture {
	t.Helper()

	ledger := memoryledger.New()
	store := memorystore.New()

	options := append([]publishing.Option{
		publishing.WithLedger(ledger),
		publishing.WithContentStore(store),
		publishing.WithRetryPolicy(testRetryPolicy()),
	}, extra...)

	svc, err := publishing.New(options...)
	require.NoError(t, err)

	return &fixture{svc: svc, ledger: ledger, store: store}
}

// publish registers an article and fails the test on any error.
func (f *fixture) publish(t *testing.T, publisher publishing.Identity, title, body string, price int64) *publishing.PublishResult {
	t.Helper()

	result, err := f.svc.Publish(context.Background(), publishing.PublishRequest{
		Publisher: publisher,
		Title:     title,
		Content:   strings.NewReader(body),
		Price:     price,
	})
	require.NoError(t, err)
	return result
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []publishing.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []publishing.Option{},
			expectError: true,
		},
		{
			name: "ledger without content store should fail",
			options: []publishing.Option{
				publishing.WithLedger(memoryledger.New()),
			},
			expectError: true,
		},
		{
			name: "content store without ledger should fail",
			options: []publishing.Option{
				publishing.WithContentStore(memorystore.New()),
			},
			expectError: true,
		},
		{
			name: "with ledger and content store should succeed",
			options: []publishing.Option{
				publishing.WithLedger(memoryledger.New()),
				publishing.WithContentStore(memorystore.New()),
			},
			expectError: false,
		},
		{
			name: "with full configuration should succeed",
			options: []publishing.Option{
				publishing.WithLedger(memoryledger.New()),
				publishing.WithContentStore(memorystore.New()),
				publishing.WithEventSink(publishing.NewNoopEventSink()),
				publishing.WithRetryPolicy(testRetryPolicy()),
				publishing.WithCatalogConcurrency(4),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := publishing.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}
