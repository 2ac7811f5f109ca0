package kyron

import (
	"context"
	"math/rand"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Scheduler coordinates work-stealing across a set of async Workers; tasks
// pinned to dedicated Workers bypass it (Engine.spawnDedicated enqueues
// them directly). Stealing probes peers
// in randomized order and takes up to half of a victim's overflow queue,
// never touching the victim's local deque (spec.md §4.3).
type Scheduler struct {
	mu      sync.RWMutex
	async   []*Worker
	metrics *metricz.Registry
}

// NewScheduler builds a Scheduler over the given async workers. Dedicated
// workers are not registered here — they are addressed directly by id and
// never participate in stealing.
func NewScheduler(async []*Worker) *Scheduler {
	return &Scheduler{async: async, metrics: metricz.New()}
}

// stealFor returns a steal function bound to worker index i, trying its
// peers in randomized order.
func (s *Scheduler) stealFor(i int) func() (func(), bool) {
	return func() (func(), bool) {
		s.mu.RLock()
		peers := make([]int, 0, len(s.async)-1)
		for j := range s.async {
			if j != i {
				peers = append(peers, j)
			}
		}
		s.mu.RUnlock()

		rand.Shuffle(len(peers), func(a, b int) { peers[a], peers[b] = peers[b], peers[a] })

		for _, j := range peers {
			capitan.Info(context.Background(), SignalSchedulerStealAttempt,
				FieldWorkerID.Field(s.async[i].id),
			)
			stolen := s.async[j].stealHalf()
			if len(stolen) == 0 {
				continue
			}
			capitan.Info(context.Background(), SignalSchedulerStealSuccess,
				FieldWorkerID.Field(s.async[i].id),
			)
			// Hand the first stolen task back to the caller; push the rest
			// onto our own local deque so subsequent pops are cheap LIFO
			// pops instead of repeated steals.
			first := stolen[0]
			for _, t := range stolen[1:] {
				s.async[i].pushLocal(t)
			}
			return first, true
		}
		return nil, false
	}
}

// Run starts every async worker's loop; it returns once all worker
// goroutines have exited (i.e. after Shutdown and drain).
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	s.mu.RLock()
	workers := append([]*Worker(nil), s.async...)
	s.mu.RUnlock()

	for i, w := range workers {
		wg.Add(1)
		go func(i int, w *Worker) {
			defer wg.Done()
			_ = w.bindOSThread()
			w.Run(ctx, s.stealFor(i))
		}(i, w)
	}
	wg.Wait()
}

// Dispatch enqueues task on the least-loaded async worker (picked by
// shallow queue-depth sampling, not a full scan, to keep the hot path
// cheap). This is the async-side of Runtime.Spawn(task, where=engine(id)).
func (s *Scheduler) Dispatch(task func()) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.async) == 0 {
		return ErrNoSuchWorker
	}
	best := s.async[0]
	bestDepth := best.queueDepth()
	// Sample at most 3 peers (power-of-d-choices) instead of scanning all —
	// bounded work regardless of engine width.
	for k := 0; k < 2 && k+1 < len(s.async); k++ {
		cand := s.async[rand.Intn(len(s.async))]
		if d := cand.queueDepth(); d < bestDepth {
			best, bestDepth = cand, d
		}
	}
	return best.Enqueue(task, false)
}
