package signedqr

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// VerifyAll verifies recs concurrently and returns one result per record in
// input order. It stops at the first collaborator fault or when ctx is done.
func (p *Protocol) VerifyAll(ctx context.Context, recs []SignedRecord, opts VerifyOptions) ([]VerifyResult, error) {
	results := make([]VerifyResult, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range recs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.VerifyWithOptions(recs[i], opts)
			if err != nil {
				return err
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
