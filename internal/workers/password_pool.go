package workers

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesbahtanvir/docuchan/backend/internal/auth"
)

// hashJob is a unit of bcrypt work dispatched to the pool; result is
// delivered back over a per-job channel so Hash/Compare stay
// synchronous from the Auth Core's point of view while the actual CPU
// work runs on one of a bounded set of goroutines instead of whatever
// goroutine handled the HTTP request.
type hashJob struct {
	run    func() (string, error)
	result chan hashResult
}

type hashResult struct {
	value string
	err   error
}

// PasswordHasherPool implements auth.Hasher over a fixed number of
// worker goroutines, so a burst of signups or logins cannot spawn
// unbounded concurrent bcrypt calls (spec.md §5, "Password hashing
// must not block the shared scheduler — dispatch to a bounded worker
// pool"). Mirrors the bounded-queue-plus-fixed-goroutines shape of
// JobQueue/BaseWorker elsewhere in this package.
type PasswordHasherPool struct {
	jobs   chan hashJob
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewPasswordHasherPool starts size worker goroutines pulling from a
// queue of depth queueSize. Call Stop to shut the pool down.
func NewPasswordHasherPool(size, queueSize int, logger *zap.Logger) *PasswordHasherPool {
	if size <= 0 {
		size = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &PasswordHasherPool{
		jobs:   make(chan hashJob, queueSize),
		logger: logger,
		cancel: cancel,
	}
	for i := 0; i < size; i++ {
		go p.worker(ctx, i)
	}
	return p
}

func (p *PasswordHasherPool) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			value, err := job.run()
			job.result <- hashResult{value: value, err: err}
		}
	}
}

// Stop terminates all worker goroutines. Jobs still waiting in the
// queue are not drained: a dispatch whose job no worker has picked up
// does not return. Callers should stop dispatching before calling Stop.
func (p *PasswordHasherPool) Stop() {
	p.cancel()
}

func (p *PasswordHasherPool) dispatch(run func() (string, error)) (string, error) {
	job := hashJob{run: run, result: make(chan hashResult, 1)}
	select {
	case p.jobs <- job:
	default:
		// Queue is full: block on enqueue rather than drop, since
		// a signup/login must eventually complete.
		p.jobs <- job
	}
	res := <-job.result
	return res.value, res.err
}

// Hash implements auth.Hasher.
func (p *PasswordHasherPool) Hash(password string, cost int) (string, error) {
	return p.dispatch(func() (string, error) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return "", err
		}
		return string(hash), nil
	})
}

// Compare implements auth.Hasher.
func (p *PasswordHasherPool) Compare(hash, password string) error {
	_, err := p.dispatch(func() (string, error) {
		return "", bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	})
	return err
}

var _ auth.Hasher = (*PasswordHasherPool)(nil)
