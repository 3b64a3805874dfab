// Package dispatch implements the insert dispatcher (spec §4.4): it
// drives one classified batch through CLASSIFIED → FANOUT → REPLIED →
// RELEASED, writing the local pool's sub-batch directly and forwarding
// every other pool's sub-batch over Transport, then settles on whichever
// comes first: every pool replying, or the shared timeout.
package dispatch

import (
	"fmt"
	"sync"

	"siriinsert/internal/logger"
)

// JobState names the phase a job is in. The state machine itself is
// driven by job.settle/expireRemaining below; JobState only records
// where a job is for observability (spec §4.4). newJob starts a job in
// JobFanout, since a job is only built once its batch is classified.
type JobState int32

const (
	JobClassified JobState = iota
	JobFanout
	JobReplied
	JobReleased
)

func (s JobState) String() string {
	switch s {
	case JobClassified:
		return "CLASSIFIED"
	case JobFanout:
		return "FANOUT"
	case JobReplied:
		return "REPLIED"
	case JobReleased:
		return "RELEASED"
	default:
		return "UNKNOWN"
	}
}

// PoolFailure records one pool's outcome when it did not succeed, either
// because its write/send returned an error or because it never settled
// before the job's timeout (spec §7 tier 2, §8 scenario 6).
type PoolFailure struct {
	PoolID uint16
	Reason string
}

// job tracks one classified batch as its sub-batches fan out to their
// pools. It is deliberately not pooled via sync.Pool: a pool's fanoutOne
// goroutine can still be running after Dispatch has already returned on
// timeout, so handing the same job struct to a later, unrelated dispatch
// while that goroutine is still writing to it would corrupt both. A
// plain per-dispatch allocation, reclaimed by the garbage collector once
// the last goroutine touching it exits, is the correct tradeoff here.
type job struct {
	mu           sync.Mutex
	state        JobState
	pending      map[uint16]bool
	failures     []PoolFailure
	completeOnce sync.Once
	done         chan struct{}
	startedAtMs  int64
}

func newJob(poolIDs []uint16, startedAtMs int64) *job {
	pending := make(map[uint16]bool, len(poolIDs))
	for _, id := range poolIDs {
		pending[id] = true
	}
	return &job{
		state:       JobFanout,
		pending:     pending,
		done:        make(chan struct{}),
		startedAtMs: startedAtMs,
	}
}

func (j *job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// settle records poolID's outcome. If poolID already settled (normally,
// or because expireRemaining already ran), the reply is logged with
// logger.Warn and dropped rather than double-counted.
func (j *job) settle(poolID uint16, err error) {
	j.mu.Lock()
	if !j.pending[poolID] {
		j.mu.Unlock()
		logger.Warn("pool %d: reply arrived after job already settled, dropping (err=%v)", poolID, err)
		return
	}
	delete(j.pending, poolID)
	if err != nil {
		j.failures = append(j.failures, PoolFailure{PoolID: poolID, Reason: err.Error()})
	}
	remaining := len(j.pending)
	j.mu.Unlock()

	if remaining == 0 {
		j.complete()
	}
}

func (j *job) complete() {
	j.completeOnce.Do(func() {
		j.mu.Lock()
		j.state = JobReplied
		j.mu.Unlock()
		close(j.done)
	})
}

// expireRemaining runs once, when the job's shared timeout fires. Every
// pool still pending becomes a timeout PoolFailure; any settle call that
// arrives afterward for one of those pools finds it no longer pending
// and drops the late reply.
func (j *job) expireRemaining(nowMs int64) {
	j.mu.Lock()
	for poolID := range j.pending {
		j.failures = append(j.failures, PoolFailure{
			PoolID: poolID,
			Reason: fmt.Sprintf("timed out after %dms", nowMs-j.startedAtMs),
		})
	}
	j.pending = map[uint16]bool{}
	j.mu.Unlock()
	j.complete()
}
