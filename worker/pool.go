package worker

import (
	iface "RouteGrader/interface"
	"RouteGrader/model"
	"RouteGrader/monitor"
	"RouteGrader/session"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrClosed  = errors.New("worker pool closed")
	ErrNoModel = errors.New("no model loaded")
)

// Job is one route to grade. Holds flagged as large stop the job before
// classification unless AcceptLargeHolds is set.
type Job struct {
	Boxes            []iface.Box
	Extent           iface.ImageExtent
	AcceptLargeHolds bool
}

type Result struct {
	Grade             iface.GradeResult
	LargeHolds        int
	Holds             []string
	Coordinates       []int
	NeedsConfirmation bool
}

type jobPackage struct {
	job    Job
	result chan jobResult
}

type jobResult struct {
	res Result
	err error
}

// Pool grades routes on a fixed number of goroutines. Each job gets its own
// session, so workers share nothing but the read-only network.
type Pool struct {
	models *model.Holder
	queue  chan jobPackage
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(models *model.Holder, queueSize int, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pool{
		models: models,
		queue:  make(chan jobPackage, queueSize),
		log:    log,
	}
}

// Start launches n workers.
func (p *Pool) Start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}
}

func (p *Pool) runWorker(workerID int) {
	p.log.Info("worker created", zap.Int("worker", workerID))
	for {
		job, ok := <-p.queue
		if !ok {
			p.wg.Done()
			return
		}
		p.handle(workerID, job)
	}
}

// handle recovers from a panicking job so the worker keeps serving.
func (p *Pool) handle(workerID int, pkg jobPackage) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker panic recovered", zap.Int("worker", workerID), zap.Any("panic", r))
			pkg.result <- jobResult{err: fmt.Errorf("worker %d panic: %v", workerID, r)}
		}
	}()
	res, err := p.grade(pkg.job)
	pkg.result <- jobResult{res: res, err: err}
}

func (p *Pool) grade(job Job) (Result, error) {
	start := time.Now()
	n := p.models.Current()
	if n == nil {
		return Result{}, ErrNoModel
	}
	s := session.New(p.log)
	s.Begin(job.Boxes, job.Extent)
	largeHolds, err := s.MapAndCheck()
	if err != nil {
		return Result{}, err
	}
	res := Result{LargeHolds: largeHolds, Holds: s.Holds()}
	if largeHolds > 0 && !job.AcceptLargeHolds {
		res.NeedsConfirmation = true
		return res, nil
	}
	grade, err := s.Classify(n)
	if err != nil {
		return Result{}, err
	}
	res.Grade = grade
	res.Coordinates = s.Flattened()
	monitor.ObserveGrade(grade.Label, largeHolds, time.Since(start))
	return res, nil
}

// Submit queues job and waits for its result or ctx.
func (p *Pool) Submit(ctx context.Context, job Job) (Result, error) {
	pkg := jobPackage{job: job, result: make(chan jobResult, 1)}
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return Result{}, ErrClosed
	}
	select {
	case p.queue <- pkg:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return Result{}, ctx.Err()
	}
	select {
	case r := <-pkg.result:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}
