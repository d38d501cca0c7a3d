package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "quorumcred/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent registry calls by error kind.
type ConcurrentResult struct {
	Successes     int32
	AlreadySigned int32
	NotFound      int32
	Unauthorized  int32
	Errors        int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.AlreadySigned + r.NotFound + r.Unauthorized + r.Errors
}

// RunConcurrent executes fn in parallel goroutines released together and
// buckets the outcomes by domain error code.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, already, notFound, unauthorized, errs atomic.Int32
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadySigned):
				already.Add(1)
			case dErrors.HasCode(err, dErrors.CodeNotFound):
				notFound.Add(1)
			case dErrors.HasCode(err, dErrors.CodeUnauthorized):
				unauthorized.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes:     successes.Load(),
		AlreadySigned: already.Load(),
		NotFound:      notFound.Load(),
		Unauthorized:  unauthorized.Load(),
		Errors:        errs.Load(),
	}
}
