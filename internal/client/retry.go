package client

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryingPanelAPI wraps a PanelAPI with a retry policy. Retries cover
// transport errors and 5xx responses; any 4xx (including the benign 404
// on delete) is terminal so callers can classify it themselves. Keeping
// the policy here means the billing and lifecycle services stay free of
// retry logic.
type RetryingPanelAPI struct {
	inner      PanelAPI
	newBackoff func() retry.Backoff
}

var _ PanelAPI = (*RetryingPanelAPI)(nil)

// NewRetryingPanelAPI wraps inner with the default policy: fibonacci
// backoff from 500ms, at most 3 retries.
func NewRetryingPanelAPI(inner PanelAPI) *RetryingPanelAPI {
	return NewRetryingPanelAPIWithPolicy(inner, func() retry.Backoff {
		return retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	})
}

// NewRetryingPanelAPIWithPolicy wraps inner with a caller-supplied
// backoff factory. A fresh Backoff is built per call since backoffs
// are stateful.
func NewRetryingPanelAPIWithPolicy(inner PanelAPI, newBackoff func() retry.Backoff) *RetryingPanelAPI {
	return &RetryingPanelAPI{inner: inner, newBackoff: newBackoff}
}

func (r *RetryingPanelAPI) CreateServer(ctx context.Context, req *CreateServerRequest) (*ServerAttributes, error) {
	var attrs *ServerAttributes
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		attrs, err = r.inner.CreateServer(ctx, req)
		return err
	})
	return attrs, err
}

func (r *RetryingPanelAPI) GetServer(ctx context.Context, serverID int64) (*ServerAttributes, error) {
	var attrs *ServerAttributes
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		attrs, err = r.inner.GetServer(ctx, serverID)
		return err
	})
	return attrs, err
}

func (r *RetryingPanelAPI) DeleteServer(ctx context.Context, serverID int64) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.inner.DeleteServer(ctx, serverID)
	})
}

func (r *RetryingPanelAPI) SuspendServer(ctx context.Context, serverID int64) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.inner.SuspendServer(ctx, serverID)
	})
}

func (r *RetryingPanelAPI) UnsuspendServer(ctx context.Context, serverID int64) error {
	return r.do(ctx, func(ctx context.Context) error {
		return r.inner.UnsuspendServer(ctx, serverID)
	})
}

func (r *RetryingPanelAPI) do(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, r.newBackoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// retryable reports whether an error is worth another attempt. Client
// errors carry a definitive answer from the panel and are not.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	// Transport-level failure: connection refused, timeout, etc.
	return true
}
