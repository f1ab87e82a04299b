package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence-tracker-backend/internal/store"
)

const testCooldown = 30 * time.Millisecond

type mockDispatcher struct {
	mu      sync.Mutex
	calls   []Submission
	receipt store.ScanReceipt
	err     error
	block   chan struct{} // when set, Dispatch waits on it
}

func (d *mockDispatcher) Dispatch(ctx context.Context, sub Submission) (store.ScanReceipt, error) {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	d.calls = append(d.calls, sub)
	d.mu.Unlock()
	return d.receipt, d.err
}

func (d *mockDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *mockDispatcher) call(i int) Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[i]
}

func armedLoop(t *testing.T, d Dispatcher) *Loop {
	t.Helper()
	loop := NewLoop(d, testCooldown)
	loop.SetSelection(Selection{LocationID: 1, Action: store.ActionEntry, Operator: "station-1"})
	require.NoError(t, loop.Start())
	require.Equal(t, StateArmed, loop.State())
	return loop
}

func TestStartRequiresSelection(t *testing.T) {
	loop := NewLoop(&mockDispatcher{}, testCooldown)

	err := loop.Start()
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, StateIdle, loop.State(), "the loop must not arm without a target")

	loop.SetSelection(Selection{LocationID: 1, Action: "sideways"})
	assert.ErrorIs(t, loop.Start(), ErrNoSelection)

	loop.SetSelection(Selection{LocationID: 1, Action: store.ActionExit})
	assert.NoError(t, loop.Start())
	assert.Equal(t, StateArmed, loop.State())
}

func TestOneSubmissionPerPhysicalScan(t *testing.T) {
	dispatcher := &mockDispatcher{receipt: store.ScanReceipt{ID: 7}}
	loop := armedLoop(t, dispatcher)
	ctx := context.Background()

	// A badge held in front of the camera decodes once per frame.
	for i := 0; i < 30; i++ {
		loop.HandleFrame(ctx, "X1")
	}

	assert.Equal(t, 1, dispatcher.callCount(), "30 frames of the same badge must yield exactly one submission")
	assert.Equal(t, StateCooldown, loop.State())

	res := <-loop.Results()
	assert.NoError(t, res.Err)
	assert.Equal(t, "X1", res.Submission.Token)
	assert.Equal(t, int64(7), res.Receipt.ID)

	// The cooldown elapses with no stop command: the loop re-arms on its
	// own and can capture a different badge.
	require.Eventually(t, func() bool {
		return loop.State() == StateArmed
	}, 50*testCooldown, time.Millisecond)

	loop.HandleFrame(ctx, "X2")
	assert.Equal(t, 2, dispatcher.callCount())
	assert.Equal(t, "X2", dispatcher.call(1).Token)
}

func TestFramesIgnoredWhileNotArmed(t *testing.T) {
	dispatcher := &mockDispatcher{}
	loop := NewLoop(dispatcher, testCooldown)
	loop.SetSelection(Selection{LocationID: 1, Action: store.ActionEntry})
	ctx := context.Background()

	// Idle: decoding has not been started.
	loop.HandleFrame(ctx, "X1")
	assert.Zero(t, dispatcher.callCount())

	require.NoError(t, loop.Start())

	// Empty decodes never count as a capture.
	loop.HandleFrame(ctx, "")
	assert.Zero(t, dispatcher.callCount())
	assert.Equal(t, StateArmed, loop.State())
}

func TestFailedDispatchStillRearms(t *testing.T) {
	dispatcher := &mockDispatcher{err: errors.New("connection refused")}
	loop := armedLoop(t, dispatcher)

	loop.HandleFrame(context.Background(), "X1")

	// The failure is surfaced, never silently promoted to success.
	res := <-loop.Results()
	require.Error(t, res.Err)
	assert.Equal(t, "X1", res.Submission.Token)

	// A failed submission must not hang the scanning workflow.
	require.Eventually(t, func() bool {
		return loop.State() == StateArmed
	}, 50*testCooldown, time.Millisecond)
}

func TestStopDuringCooldownSuppressesRearm(t *testing.T) {
	dispatcher := &mockDispatcher{}
	loop := armedLoop(t, dispatcher)

	loop.HandleFrame(context.Background(), "X1")
	require.Equal(t, StateCooldown, loop.State())

	loop.Stop()
	assert.Equal(t, StateIdle, loop.State())

	time.Sleep(3 * testCooldown)
	assert.Equal(t, StateIdle, loop.State(), "a stopped loop must not re-arm on its own")
}

func TestStopWithOutstandingSubmissionLetsItComplete(t *testing.T) {
	dispatcher := &mockDispatcher{block: make(chan struct{})}
	loop := armedLoop(t, dispatcher)

	done := make(chan struct{})
	go func() {
		loop.HandleFrame(context.Background(), "X1")
		close(done)
	}()

	require.Eventually(t, func() bool {
		return loop.State() == StateCooldown
	}, time.Second, time.Millisecond)

	// Operator stops scanning while the submission is still in flight.
	loop.Stop()
	close(dispatcher.block)
	<-done

	// The submission completed and was reported for record integrity.
	assert.Equal(t, 1, dispatcher.callCount())
	res := <-loop.Results()
	assert.Equal(t, "X1", res.Submission.Token)

	// But the stop wins: no auto re-arm afterwards.
	time.Sleep(3 * testCooldown)
	assert.Equal(t, StateIdle, loop.State())
}

func TestSelectionSnapshotAtCapture(t *testing.T) {
	dispatcher := &mockDispatcher{block: make(chan struct{})}
	loop := NewLoop(dispatcher, testCooldown)
	loop.SetSelection(Selection{LocationID: 1, Action: store.ActionEntry})
	require.NoError(t, loop.Start())

	done := make(chan struct{})
	go func() {
		loop.HandleFrame(context.Background(), "X1")
		close(done)
	}()

	require.Eventually(t, func() bool {
		return loop.State() == StateCooldown
	}, time.Second, time.Millisecond)

	// Changing the selection mid-cooldown must not retroactively alter
	// the in-flight submission.
	loop.SetSelection(Selection{LocationID: 2, Action: store.ActionExit})
	close(dispatcher.block)
	<-done

	sub := dispatcher.call(0)
	assert.Equal(t, int64(1), sub.LocationID)
	assert.Equal(t, store.ActionEntry, sub.Action)
}

func TestRunReportsDeviceErrors(t *testing.T) {
	loop := NewLoop(&mockDispatcher{}, testCooldown)
	loop.SetSelection(Selection{LocationID: 1, Action: store.ActionEntry})

	err := loop.Run(context.Background(), NewLineSource(nil))
	assert.ErrorIs(t, err, ErrNoDeviceFound)
	assert.Equal(t, StateIdle, loop.State(), "device failures must be reported without leaving Idle")
}

func TestRunDrivesLoopFromFrameFeed(t *testing.T) {
	dispatcher := &mockDispatcher{receipt: store.ScanReceipt{ID: 1}}
	loop := NewLoop(dispatcher, testCooldown)
	loop.SetSelection(Selection{LocationID: 1, Action: store.ActionEntry})

	// One badge decoded on several consecutive frames, then the feed ends.
	feed := strings.NewReader("X1\nX1\nX1\n")
	err := loop.Run(context.Background(), NewLineSource(feed))
	require.NoError(t, err)

	assert.Equal(t, 1, dispatcher.callCount())
	assert.Equal(t, StateIdle, loop.State(), "the loop stops when the source is exhausted")
}
