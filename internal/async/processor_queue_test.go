package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]bool
}

func (p *recordingProcessor) Process(ctx context.Context, job Job) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, job.Path)
	if p.fail[job.Path] {
		return errors.New("boom")
	}
	return nil
}

func TestQueueProcessesAllJobsBeforeShutdown(t *testing.T) {
	proc := &recordingProcessor{fail: map[string]bool{"b.txt": true}}
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithQueueSize(1), WithProcessTimeout(time.Second))

	ctx := context.Background()
	for _, p := range []string{"a.txt", "b.txt", "c.txt", "d.txt"} {
		require.NoError(t, q.Enqueue(ctx, Job{Path: p}))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt", "d.txt"}, proc.paths)
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "late.txt"}), ErrQueueClosed)
	q.Shutdown(shutdownCtx)
}

type blockingProcessor struct{ release chan struct{} }

func (p blockingProcessor) Process(context.Context, Job) error {
	<-p.release
	return nil
}

func TestEnqueueHonorsContextWhenFull(t *testing.T) {
	proc := blockingProcessor{release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(proc.release)
		q.Shutdown(context.Background())
	}()

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1"}))
	// the worker may or may not have picked up job 1 yet; fill until blocked
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = q.Enqueue(ctx, Job{Path: "more"})
	}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
