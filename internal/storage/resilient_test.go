package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyHost struct {
	uploadErr  error
	deleteErrs []error
	uploads    int
	deletes    int
}

func (h *flakyHost) UploadImage(_ context.Context, up Upload) (*Image, error) {
	h.uploads++
	if h.uploadErr != nil {
		return nil, h.uploadErr
	}
	_, _ = io.Copy(io.Discard, up.Body)
	return &Image{URL: "https://img.example/" + up.Prefix, PublicID: up.Prefix}, nil
}

func (h *flakyHost) DeleteImage(context.Context, string) error {
	h.deletes++
	if len(h.deleteErrs) == 0 {
		return nil
	}
	err := h.deleteErrs[0]
	h.deleteErrs = h.deleteErrs[1:]
	return err
}

func newQuietResilient(next ImageHost, failures, retries int) *ResilientHost {
	h := NewResilientHost(next, ResilientOptions{
		MaxFailures:   failures,
		OpenTimeout:   time.Minute,
		DeleteRetries: retries,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	h.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return h
}

func TestResilientHost_PassesThrough(t *testing.T) {
	inner := &flakyHost{}
	h := newQuietResilient(inner, 2, 0)

	img, err := h.UploadImage(context.Background(), Upload{Prefix: "user", Body: bytes.NewReader([]byte("x"))})
	require.NoError(t, err)
	assert.Equal(t, "user", img.PublicID)
	assert.Equal(t, gobreaker.StateClosed, h.State())
}

func TestResilientHost_TripsAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("503 from upstream")
	inner := &flakyHost{uploadErr: boom}
	h := newQuietResilient(inner, 2, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.UploadImage(ctx, Upload{Body: bytes.NewReader(nil)})
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, h.State())

	_, err := h.UploadImage(ctx, Upload{Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrHostUnavailable)
	assert.Equal(t, 2, inner.uploads, "open breaker short-circuits the call")

	assert.ErrorIs(t, h.DeleteImage(ctx, "x"), ErrHostUnavailable)
	assert.Zero(t, inner.deletes)
}

func TestResilientHost_RetriesDeletes(t *testing.T) {
	flake := errors.New("connection reset")
	inner := &flakyHost{deleteErrs: []error{flake, flake}}
	h := newQuietResilient(inner, 10, 3)

	require.NoError(t, h.DeleteImage(context.Background(), "portify/avatars/a"))
	assert.Equal(t, 3, inner.deletes)

	inner = &flakyHost{deleteErrs: []error{flake, flake, flake}}
	h = newQuietResilient(inner, 10, 1)
	assert.ErrorIs(t, h.DeleteImage(context.Background(), "portify/avatars/a"), flake)
	assert.Equal(t, 2, inner.deletes)
}
