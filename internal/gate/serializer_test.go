package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ananth-NQI/dinepe-backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireServesWaitersInArrivalOrder(t *testing.T) {
	s := New(32, 5*time.Second, nil)
	ctx := context.Background()

	release, err := s.Acquire(ctx, "cust")
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rel, err := s.Acquire(ctx, "cust")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			rel()
		}(i)
		// wait for this waiter to be queued before launching the next
		require.Eventually(t, func() bool { return s.Pending("cust") == i+2 }, time.Second, time.Millisecond)
	}

	release()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
	assert.Equal(t, 0, s.Pending("cust"))
}

func TestAcquireRejectsWhenQueueFull(t *testing.T) {
	s := New(1, 5*time.Second, nil)
	ctx := context.Background()

	release, err := s.Acquire(ctx, "cust")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		rel, err := s.Acquire(ctx, "cust")
		if err == nil {
			rel()
		}
	}()
	require.Eventually(t, func() bool { return s.Pending("cust") == 2 }, time.Second, time.Millisecond)

	_, err = s.Acquire(ctx, "cust")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrQueueOverflow))

	release()
	<-done
}

func TestAcquireTimesOut(t *testing.T) {
	s := New(4, 20*time.Millisecond, nil)
	ctx := context.Background()

	release, err := s.Acquire(ctx, "cust")
	require.NoError(t, err)
	defer release()

	_, err = s.Acquire(ctx, "cust")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyTimeout)
	assert.Equal(t, 1, s.Pending("cust"), "timed-out waiter leaves the queue")
}

func TestAcquireHonoursContextCancellation(t *testing.T) {
	s := New(4, 0, nil)
	release, err := s.Acquire(context.Background(), "cust")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = s.Acquire(ctx, "cust")
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyTimeout)
	assert.ErrorIs(t, err, context.Canceled)

	release()
	rel, err := s.Acquire(context.Background(), "cust")
	require.NoError(t, err, "gate is usable after an abandoned waiter")
	rel()
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	s := New(0, 50*time.Millisecond, nil)
	ctx := context.Background()

	relA, err := s.Acquire(ctx, "a")
	require.NoError(t, err)
	relB, err := s.Acquire(ctx, "b")
	require.NoError(t, err)
	relA()
	relB()
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := New(4, time.Second, nil)
	ctx := context.Background()

	rel, err := s.Acquire(ctx, "cust")
	require.NoError(t, err)

	waiting := make(chan func())
	go func() {
		r, err := s.Acquire(ctx, "cust")
		assert.NoError(t, err)
		waiting <- r
	}()
	require.Eventually(t, func() bool { return s.Pending("cust") == 2 }, time.Second, time.Millisecond)

	rel()
	second := <-waiting
	rel() // must not release the second holder
	assert.Equal(t, 1, s.Pending("cust"))
	second()
	assert.Equal(t, 0, s.Pending("cust"))
}
