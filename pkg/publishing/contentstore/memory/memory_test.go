package memory_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwire/publishinghub/pkg/publishing/contentstore/memory"
)

func TestUploadAndFetch(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	cid, err := s.Upload(ctx, strings.NewReader("article body"), "article.md")
	require.NoError(t, err)
	require.NotEmpty(t, cid)

	rc, err := s.Fetch(ctx, cid)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "article body", string(data))
}

func TestContentAddressing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	first, err := s.Upload(ctx, strings.NewReader("same bytes"), "a.md")
	require.NoError(t, err)

	second, err := s.Upload(ctx, strings.NewReader("same bytes"), "b.md")
	require.NoError(t, err)

	// Identical payloads dedupe to the same id regardless of name.
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.Len())

	third, err := s.Upload(ctx, strings.NewReader("different bytes"), "c.md")
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, s.Len())
}

func TestFetchUnknownID(t *testing.T) {
	s := memory.New()

	rc, err := s.Fetch(context.Background(), "no-such-digest")
	assert.Nil(t, rc)
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestInjectedUploadFailure(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	boom := errors.New("store unreachable")
	s.FailUploads(boom)

	_, err := s.Upload(ctx, strings.NewReader("body"), "a.md")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())

	s.FailUploads(nil)
	_, err = s.Upload(ctx, strings.NewReader("body"), "a.md")
	assert.NoError(t, err)
}
