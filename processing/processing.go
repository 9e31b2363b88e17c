// Package processing runs background work that has to be retried until it
// succeeds, such as deleting blobs after a failed attempt.
package processing

import (
	"context"
	"log"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type Task interface {
	Name() string
	Process(ctx context.Context) error
}

type taskFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (t *taskFunc) Name() string                      { return t.name }
func (t *taskFunc) Process(ctx context.Context) error { return t.fn(ctx) }

func NewTask(name string, fn func(ctx context.Context) error) Task {
	return &taskFunc{name: name, fn: fn}
}

type pendingTask struct {
	task     Task
	attempts int
}

// Queue holds tasks by name. Adding a task with a name that is already queued
// replaces it.
type Queue struct {
	pending     cmap.ConcurrentMap[string, *pendingTask]
	maxAttempts int
}

func NewQueue(maxAttempts int) *Queue {
	return &Queue{pending: cmap.New[*pendingTask](), maxAttempts: maxAttempts}
}

func (q *Queue) Add(t Task) {
	q.pending.Set(t.Name(), &pendingTask{task: t})
}

func (q *Queue) Len() int {
	return q.pending.Count()
}

func (q *Queue) Has(name string) bool {
	return q.pending.Has(name)
}

// remove drops p unless it was replaced in the meantime
func (q *Queue) remove(name string, p *pendingTask) {
	q.pending.RemoveCb(name, func(key string, v *pendingTask, exists bool) bool {
		return exists && v == p
	})
}

// ProcessPending runs every queued task once. Tasks that fail stay queued
// until they used up their attempts.
func (q *Queue) ProcessPending(ctx context.Context) (done, failed int) {
	for item := range q.pending.IterBuffered() {
		if ctx.Err() != nil {
			return
		}
		p := item.Val
		start := time.Now()
		err := p.task.Process(ctx)
		p.attempts++
		if err == nil {
			log.Printf("Task %s done, attempt: %d, time: %v", item.Key, p.attempts, time.Since(start))
			q.remove(item.Key, p)
			done++
			continue
		}
		failed++
		if p.attempts >= q.maxAttempts {
			log.Printf("Task %s given up after %d attempts: %v", item.Key, p.attempts, err)
			q.remove(item.Key, p)
			continue
		}
		log.Printf("Task %s failed, attempt: %d: %v", item.Key, p.attempts, err)
	}
	return
}

// Start processes the queue every interval until ctx is done.
func (q *Queue) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if q.Len() > 0 {
				q.ProcessPending(ctx)
			}
		}
	}
}
