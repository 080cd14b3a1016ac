package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeScanner struct {
	calls   atomic.Int32
	lastMax atomic.Int32
	err     error
	block   chan struct{}
}

func (f *fakeScanner) Scan(ctx context.Context, _ core.MessageSource, max int) (*core.ScanReport, error) {
	f.calls.Add(1)
	f.lastMax.Store(int32(max))
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return &core.ScanReport{ScanID: "scan", Fetched: max}, f.err
}

func TestScanNowUsesConfiguredLimit(t *testing.T) {
	f := &fakeScanner{}
	s := New(f, nil, time.Hour, 250, zap.NewNop())

	report, err := s.ScanNow(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int32(250), f.lastMax.Load())
	assert.Same(t, report, s.LastReport())

	_, err = s.ScanNow(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int32(10), f.lastMax.Load())
}

func TestScanNowRejectsConcurrentScan(t *testing.T) {
	f := &fakeScanner{block: make(chan struct{})}
	s := New(f, nil, time.Hour, 100, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.ScanNow(context.Background(), 0)
	}()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := s.ScanNow(context.Background(), 0)
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(f.block)
	<-done
}

func TestRunScansImmediatelyAndOnTicker(t *testing.T) {
	f := &fakeScanner{err: errors.New("gmail unavailable")}
	s := New(f, nil, 10*time.Millisecond, 100, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	require.Eventually(t, func() bool { return f.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunWithoutIntervalScansOnce(t *testing.T) {
	f := &fakeScanner{}
	s := New(f, nil, 0, 100, zap.NewNop())

	s.Run(context.Background())
	assert.Equal(t, int32(1), f.calls.Load())
}
