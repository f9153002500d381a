package store

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/hrtaj/hrtaj-cli/internal/resilience"
)

// Retrying decorates a Store so every call is retried on transient errors
// and, when a limiter is set, paced to the limiter's rate.
type Retrying struct {
	next    Store
	policy  resilience.Policy
	limiter *rate.Limiter
}

// NewRetrying wraps next. A nil limiter disables pacing.
func NewRetrying(next Store, policy resilience.Policy, limiter *rate.Limiter) *Retrying {
	return &Retrying{next: next, policy: policy, limiter: limiter}
}

// Unwrap returns the decorated store.
func (r *Retrying) Unwrap() Store { return r.next }

func (r *Retrying) policyFor(op string) resilience.Policy {
	p := r.policy
	if p.OnRetry == nil {
		p.OnRetry = resilience.RetryLogger("store", op)
	}
	return p
}

func (r *Retrying) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return eris.Wrap(r.limiter.Wait(ctx), "store: rate limit")
}

func (r *Retrying) Select(ctx context.Context, q *Query) ([]Record, error) {
	return resilience.Call(ctx, r.policyFor("select "+q.table), func(ctx context.Context) ([]Record, error) {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
		return r.next.Select(ctx, q)
	})
}

func (r *Retrying) Insert(ctx context.Context, table string, rec Record) (string, error) {
	return resilience.Call(ctx, r.policyFor("insert "+table), func(ctx context.Context) (string, error) {
		if err := r.wait(ctx); err != nil {
			return "", err
		}
		return r.next.Insert(ctx, table, rec)
	})
}

func (r *Retrying) Update(ctx context.Context, table, id string, rec Record) error {
	return r.policyFor("update "+table).Do(ctx, func(ctx context.Context) error {
		if err := r.wait(ctx); err != nil {
			return err
		}
		return r.next.Update(ctx, table, id, rec)
	})
}

func (r *Retrying) Upsert(ctx context.Context, table string, rec Record, conflictKey string) error {
	return r.policyFor("upsert "+table).Do(ctx, func(ctx context.Context) error {
		if err := r.wait(ctx); err != nil {
			return err
		}
		return r.next.Upsert(ctx, table, rec, conflictKey)
	})
}

func (r *Retrying) Close() error {
	return r.next.Close()
}
