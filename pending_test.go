package rets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_Wait(t *testing.T) {
	p := Go(context.Background(), func(ctx context.Context) (string, error) {
		return "done", nil
	})

	v, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	select {
	case <-p.Done():
	default:
		t.Fatal("Done must be closed after Wait returned")
	}
}

func TestPending_Error(t *testing.T) {
	boom := errors.New("boom")
	p := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 0, boom
	})

	_, err := p.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPending_WaitContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPending_Then(t *testing.T) {
	p := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	got := make(chan int, 1)
	p.Then(func(v int, err error) {
		assert.NoError(t, err)
		got <- v
	})

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Then callback not called")
	}
}
