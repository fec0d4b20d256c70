package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result pairs a tick's decision with its processing error.
type Result struct {
	Decision Decision
	Err      error
}

// ProcessBatch runs ticks concurrently across symbols and serially, in input
// order, within a symbol. results[i] belongs to ticks[i]. Per-tick errors are
// reported in the results; the returned error is only ctx's.
// workers <= 0 means one goroutine per symbol.
func (p *Pipeline) ProcessBatch(ctx context.Context, ticks []Tick, workers int) ([]Result, error) {
	results := make([]Result, len(ticks))
	bySymbol := make(map[string][]int)
	var symbols []string
	for i, t := range ticks {
		sym := t.Symbol()
		if _, ok := bySymbol[sym]; !ok {
			symbols = append(symbols, sym)
		}
		bySymbol[sym] = append(bySymbol[sym], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, sym := range symbols {
		idx := bySymbol[sym]
		g.Go(func() error {
			for _, i := range idx {
				if err := gctx.Err(); err != nil {
					return err
				}
				d, err := p.Process(ticks[i])
				results[i] = Result{Decision: d, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
