package worker

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllCollectsEveryResult(t *testing.T) {
	var ran atomic.Int32
	boom := errors.New("boom")

	tasks := make([]Task, 0, 10)
	for i := 0; i < 10; i++ {
		key := string(rune('a' + i))
		tasks = append(tasks, Task{Key: key, Run: func(ctx context.Context) error {
			ran.Add(1)
			if key == "c" {
				return boom
			}
			return nil
		}})
	}

	results := RunAll(context.Background(), 3, 0, tasks)
	require.Len(t, results, 10)
	assert.Equal(t, int32(10), ran.Load())

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	assert.ErrorIs(t, results[2].Err, boom)
	assert.NoError(t, results[0].Err)
}

func TestRunAllRespectsRateLimit(t *testing.T) {
	tasks := make([]Task, 0, 3)
	for i := 0; i < 3; i++ {
		tasks = append(tasks, Task{Key: "t", Run: func(context.Context) error { return nil }})
	}

	started := time.Now()
	results := RunAll(context.Background(), 3, 20, tasks)
	require.Len(t, results, 3)
	assert.GreaterOrEqual(t, time.Since(started), 100*time.Millisecond)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(2, 0)
	results := p.Run(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		for range results {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not exit after cancel")
	}
}

func TestNilPoolIsSafe(t *testing.T) {
	var p *Pool
	p.SetRateLimit(5)
	p.Submit(Task{Run: func(context.Context) error { return nil }})
	p.Close()

	_, ok := <-p.Run(context.Background())
	assert.False(t, ok)
}
