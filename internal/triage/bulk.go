package triage

import (
	"context"
	"sort"
	"sync"
)

// BulkResult aggregates the outcomes of one fan-out. Partial failure is
// tolerated: successes stand regardless of how the other ids fared.
type BulkResult struct {
	Action    string
	Succeeded []int
	Failed    map[int]error
}

// Ok reports whether every id succeeded.
func (r BulkResult) Ok() bool { return len(r.Failed) == 0 }

// FanOut issues one independent request per id, all concurrently, and waits
// for every outcome before returning. There is no ordering guarantee between
// the per-id requests and a failure on one id never aborts the others.
func FanOut(ctx context.Context, action string, ids []int, do func(context.Context, int) error) BulkResult {
	type outcome struct {
		id  int
		err error
	}

	results := make(chan outcome, len(ids))
	var wg sync.WaitGroup
	wg.Add(len(ids))
	for _, id := range ids {
		go func(id int) {
			defer wg.Done()
			results <- outcome{id: id, err: do(ctx, id)}
		}(id)
	}
	wg.Wait()
	close(results)

	res := BulkResult{Action: action, Failed: make(map[int]error)}
	for o := range results {
		if o.err != nil {
			res.Failed[o.id] = o.err
			continue
		}
		res.Succeeded = append(res.Succeeded, o.id)
	}
	sort.Ints(res.Succeeded)
	return res
}
