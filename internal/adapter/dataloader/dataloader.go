// Package dataloader provides per-request loaders that collapse the per-loan
// lookups made while rendering a response into one batched call per key kind.
// Loaders cache for the lifetime of one request only.
package dataloader

import (
	"context"
	"fmt"
	"time"

	"loan-ledger/internal/domain/loan"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/shopspring/decimal"
)

const (
	maxBatch = 100
	wait     = 2 * time.Millisecond
)

// Source is satisfied by the ledger usecase. Both methods return one entry per
// key, in key order.
type Source interface {
	TotalRepaidBatch(ctx context.Context, ids []string) ([]decimal.Decimal, error)
	LoansByIDs(ctx context.Context, ids []string) ([]*loan.Loan, error)
}

type Loaders struct {
	TotalRepaid *dataloader.Loader[string, decimal.Decimal]
	// LoanByID yields nil for unknown ids.
	LoanByID *dataloader.Loader[string, *loan.Loan]
}

// NewLoaders must be called per request.
func NewLoaders(src Source) *Loaders {
	return &Loaders{
		TotalRepaid: newLoader(orderedBatchFn(src.TotalRepaidBatch)),
		LoanByID:    newLoader(orderedBatchFn(src.LoansByIDs)),
	}
}

func newLoader[V any](batchFn dataloader.BatchFunc[string, V]) *dataloader.Loader[string, V] {
	return dataloader.NewBatchedLoader(
		batchFn,
		dataloader.WithWait[string, V](wait),
		dataloader.WithBatchCapacity[string, V](maxBatch),
	)
}

// orderedBatchFn adapts a source call that already returns results in key order.
func orderedBatchFn[V any](fetch func(context.Context, []string) ([]V, error)) dataloader.BatchFunc[string, V] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[V] {
		vals, err := fetch(ctx, keys)
		if err != nil {
			return errorResults[V](len(keys), err)
		}
		if len(vals) != len(keys) {
			return errorResults[V](len(keys),
				fmt.Errorf("dataloader: got %d results for %d keys", len(vals), len(keys)))
		}
		out := make([]*dataloader.Result[V], len(keys))
		for i, v := range vals {
			out[i] = &dataloader.Result[V]{Data: v}
		}
		return out
	}
}

func errorResults[V any](n int, err error) []*dataloader.Result[V] {
	out := make([]*dataloader.Result[V], n)
	for i := range out {
		out[i] = &dataloader.Result[V]{Error: err}
	}
	return out
}

// LoadAll resolves keys through l in one batch and returns the first error.
func LoadAll[V any](ctx context.Context, l *dataloader.Loader[string, V], keys []string) ([]V, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, errs := l.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return vals, nil
}

type contextKey string

const loadersKey contextKey = "dataloaders"

func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, l)
}

// FromContext retrieves Loaders from the context.
// Panics if loaders are not present (indicates middleware misconfiguration).
func FromContext(ctx context.Context) *Loaders {
	l, ok := ctx.Value(loadersKey).(*Loaders)
	if !ok || l == nil {
		panic("dataloader: loaders not found in context, is middleware configured?")
	}
	return l
}
