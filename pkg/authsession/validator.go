package authsession

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/focusforge/pkg/apiclient"
	"github.com/dmitrymomot/focusforge/pkg/logger"
)

// Validator asks the server who owns a credential. Errors classify as
// apiclient.ErrUnauthorized (the credential is invalid) or anything else
// (validity unknown).
type Validator interface {
	Validate(ctx context.Context, credential string) (*apiclient.User, error)
}

// ValidatorFunc adapts a function, such as (*apiclient.Client).Me, to Validator.
type ValidatorFunc func(ctx context.Context, credential string) (*apiclient.User, error)

func (f ValidatorFunc) Validate(ctx context.Context, credential string) (*apiclient.User, error) {
	return f(ctx, credential)
}

type retryPolicy struct {
	retries  int
	base     time.Duration
	maxDelay time.Duration
}

func (p retryPolicy) backoff() retry.Backoff {
	base := p.base
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	b := retry.NewExponential(base)
	if p.maxDelay > 0 {
		b = retry.WithCappedDuration(p.maxDelay, b)
	}
	return retry.WithMaxRetries(uint64(p.retries), b)
}

// coalescingValidator shares one in-flight validation among all callers
// asking about the same credential and retries transient failures.
type coalescingValidator struct {
	next    Validator
	retry   retryPolicy
	group   singleflight.Group
	log     *slog.Logger
	metrics *metrics
}

func (v *coalescingValidator) Validate(ctx context.Context, credential string) (*apiclient.User, error) {
	// The shared call must outlive any single caller that gives up.
	ch := v.group.DoChan(credential, func() (any, error) {
		return v.validate(context.WithoutCancel(ctx), credential)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		user := *res.Val.(*apiclient.User)
		return &user, nil
	}
}

func (v *coalescingValidator) validate(ctx context.Context, credential string) (*apiclient.User, error) {
	var (
		user    *apiclient.User
		attempt int
	)
	start := time.Now()

	err := retry.Do(ctx, v.retry.backoff(), func(ctx context.Context) error {
		attempt++
		u, err := v.next.Validate(ctx, credential)
		if err == nil {
			user = u
			return nil
		}
		if apiclient.IsTransient(err) {
			v.log.DebugContext(ctx, "validation attempt failed", logger.RetryCount(attempt-1), logger.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		v.metrics.validation("valid")
	case errors.Is(err, apiclient.ErrUnauthorized):
		v.metrics.validation("rejected")
	default:
		v.metrics.validation("unavailable")
	}
	v.log.DebugContext(ctx, "credential validated",
		slog.Int("attempts", attempt),
		logger.Duration(time.Since(start)),
		logger.Error(err),
	)

	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("validator returned no user")
	}
	return user, nil
}
