package task

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitTerminal(t *testing.T, m *Manager, id string) Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := m.GetTask(id)
		require.NoError(t, err)
		if IsTerminal(got.State) {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for task %s", id)
	return Task{}
}

func TestSubmitCompletes(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})

	id := m.Submit(KindTitle, func(ctx context.Context, _ string) (Result, error) {
		<-release
		return Result{Title: "hello"}, nil
	})
	assert.Equal(t, "task_1", id)

	got, err := m.GetTask(id)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status())
	_, hasResult := got.Result()
	_, hasError := got.Error()
	assert.False(t, hasResult)
	assert.False(t, hasError)

	close(release)
	got = waitTerminal(t, m, id)
	res, ok := got.Result()
	require.True(t, ok)
	assert.Equal(t, "hello", res.Title)
	_, hasError = got.Error()
	assert.False(t, hasError)
	assert.Equal(t, 1, m.Store().TerminalWrites(id))
}

func TestSubmitRecordsJobError(t *testing.T) {
	m := NewManager()
	id := m.Submit(KindVideo, func(ctx context.Context, _ string) (Result, error) {
		return Result{Title: "ignored"}, errors.New("boom")
	})

	got := waitTerminal(t, m, id)
	assert.Equal(t, StatusError, got.Status())
	msg, ok := got.Error()
	require.True(t, ok)
	assert.Equal(t, "boom", msg)
	_, hasResult := got.Result()
	assert.False(t, hasResult)
	assert.Equal(t, 1, m.Store().TerminalWrites(id))
}

func TestSubmitRecoversPanic(t *testing.T) {
	m := NewManager()
	id := m.Submit(KindAudio, func(ctx context.Context, _ string) (Result, error) {
		panic("unexpected")
	})

	got := waitTerminal(t, m, id)
	msg, ok := got.Error()
	require.True(t, ok)
	assert.Contains(t, msg, "unexpected")
	assert.Equal(t, 1, m.Store().TerminalWrites(id))
}

func TestSubmitNilJobFails(t *testing.T) {
	m := NewManager()
	id := m.Submit(KindTitle, nil)
	got := waitTerminal(t, m, id)
	assert.Equal(t, StatusError, got.Status())
}

func TestGetUnknownTask(t *testing.T) {
	m := NewManager()
	_, err := m.GetTask("task_1")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	m.Submit(KindTitle, func(ctx context.Context, _ string) (Result, error) { return Result{}, nil })
	_, err = m.GetTask("task_999")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestConcurrentSubmitIssuesUniqueIDs(t *testing.T) {
	m := NewManagerWithOptions(Options{MaxConcurrentTasks: 4})
	const submissions = 200

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, submissions)
	)
	noop := func(ctx context.Context, _ string) (Result, error) { return Result{}, nil }
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := m.Submit(KindTitle, noop)
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, submissions)
	for i := 1; i <= submissions; i++ {
		_, ok := ids["task_"+strconv.Itoa(i)]
		assert.True(t, ok, "missing task_%d", i)
	}
	require.True(t, m.WaitAll(context.Background()))
	for id := range ids {
		got, err := m.GetTask(id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status())
	}
}

func TestSequentialIDsIncrease(t *testing.T) {
	m := NewManager()
	noop := func(ctx context.Context, _ string) (Result, error) { return Result{}, nil }
	prev := 0
	for i := 0; i < 10; i++ {
		id := m.Submit(KindTitle, noop)
		n, err := strconv.Atoi(strings.TrimPrefix(id, "task_"))
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestSubmitDoesNotBlockWhenBusy(t *testing.T) {
	m := NewManagerWithOptions(Options{MaxConcurrentTasks: 1})
	blocker := make(chan struct{})
	started := make(chan struct{})

	first := m.Submit(KindAudio, func(ctx context.Context, _ string) (Result, error) {
		close(started)
		<-blocker
		return Result{}, nil
	})
	<-started
	assert.True(t, m.IsBusy())

	done := make(chan string)
	go func() {
		done <- m.Submit(KindAudio, func(ctx context.Context, _ string) (Result, error) { return Result{}, nil })
	}()

	var second string
	select {
	case second = <-done:
	case <-time.After(time.Second):
		t.Fatalf("submit blocked while the manager was busy")
	}

	got, err := m.GetTask(second)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status())

	close(blocker)
	waitTerminal(t, m, first)
	waitTerminal(t, m, second)
}

func TestSubmitRecordsAutoUpload(t *testing.T) {
	m := NewManager()
	id := m.Submit(KindAudio, func(ctx context.Context, _ string) (Result, error) { return Result{}, nil }, WithAutoUpload(false))

	got, err := m.GetTask(id)
	require.NoError(t, err)
	require.NotNil(t, got.AutoUpload)
	assert.False(t, *got.AutoUpload)

	other := m.Submit(KindVideo, func(ctx context.Context, _ string) (Result, error) { return Result{}, nil })
	got, err = m.GetTask(other)
	require.NoError(t, err)
	assert.Nil(t, got.AutoUpload)
}

func TestBaseContextCancellationDoesNotAbortJobs(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	m.SetBaseContext(ctx)
	cancel()

	id := m.Submit(KindTitle, func(ctx context.Context, _ string) (Result, error) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		return Result{Title: "still running"}, nil
	})

	got := waitTerminal(t, m, id)
	assert.Equal(t, StatusCompleted, got.Status())
}

func TestWaitAllTimesOut(t *testing.T) {
	m := NewManager()
	blocker := make(chan struct{})
	m.Submit(KindTitle, func(ctx context.Context, _ string) (Result, error) {
		<-blocker
		return Result{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, m.WaitAll(ctx))

	close(blocker)
	assert.True(t, m.WaitAll(context.Background()))
}
