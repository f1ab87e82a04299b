package capture

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"presence-tracker-backend/internal/store"
)

// State is the capture loop's position in its scanning cycle.
type State int

const (
	// StateIdle: not decoding. The loop only leaves Idle on an explicit
	// start command.
	StateIdle State = iota
	// StateArmed: decoding frames, watching for a token.
	StateArmed
	// StateCooldown: a token was just captured; decoding is suspended
	// until the re-arm timer fires.
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateCooldown:
		return "cooldown"
	}
	return "unknown"
}

// ErrNoSelection is returned by Start when no target location and
// action have been selected yet.
var ErrNoSelection = errors.New("a target location and action must be selected before scanning")

// Selection is the operator's chosen target for upcoming captures. It
// is read at the instant a token is captured, so changing it during a
// cooldown never alters an in-flight submission.
type Selection struct {
	LocationID int64
	Action     store.Action
	Operator   string
}

func (sel Selection) complete() bool {
	return sel.LocationID != 0 && sel.Action.Valid()
}

// Submission is one captured scan on its way to the ingestion service.
type Submission struct {
	Token       string
	LocationID  int64
	Action      store.Action
	SubmittedBy string
}

// Result is the outcome of one capture, surfaced to the operator. Err
// is set when the dispatch failed; the event was then NOT durably
// recorded and the operator may choose to re-scan.
type Result struct {
	Submission Submission
	Receipt    store.ScanReceipt
	Err        error
}

// Dispatcher delivers one captured submission to the ingestion service.
type Dispatcher interface {
	Dispatch(ctx context.Context, sub Submission) (store.ScanReceipt, error)
}

// Loop turns a continuous stream of decoded frames into a de-duplicated
// sequence of scan submissions. A badge held in front of the camera
// decodes once per frame; the Armed/Cooldown states guarantee exactly
// one submission per physical scan.
type Loop struct {
	dispatcher Dispatcher
	cooldown   time.Duration
	results    chan Result

	mu        sync.Mutex
	state     State
	selection Selection
	rearm     *time.Timer
}

// NewLoop creates a capture loop. cooldown is the delay between a
// completed dispatch and re-arming.
func NewLoop(d Dispatcher, cooldown time.Duration) *Loop {
	return &Loop{
		dispatcher: d,
		cooldown:   cooldown,
		results:    make(chan Result, 16),
	}
}

// State reports the loop's current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetSelection updates the target for future captures. It does not
// affect a submission already in flight.
func (l *Loop) SetSelection(sel Selection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selection = sel
}

// Results delivers the outcome of each capture, success or failure.
func (l *Loop) Results() <-chan Result {
	return l.results
}

// Start arms the loop. It refuses to arm while no complete selection is
// configured, so no decoding can begin without a target. Starting an
// already-running loop is a no-op.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateIdle {
		return nil
	}
	if !l.selection.complete() {
		return ErrNoSelection
	}
	l.state = StateArmed
	return nil
}

// Stop returns the loop to Idle and cancels any pending re-arm timer.
// An outstanding dispatch is left to complete so the event is still
// durably recorded, but the loop will not re-arm afterwards.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = StateIdle
	if l.rearm != nil {
		l.rearm.Stop()
		l.rearm = nil
	}
}

// HandleFrame feeds one decoded frame into the state machine. Empty
// decodes and frames seen while the loop is not armed are ignored; the
// first token seen in Armed produces exactly one submission and moves
// the loop to Cooldown. The dispatch runs on the caller's goroutine.
func (l *Loop) HandleFrame(ctx context.Context, token string) {
	if token == "" {
		return
	}

	l.mu.Lock()
	if l.state != StateArmed {
		l.mu.Unlock()
		return
	}
	l.state = StateCooldown
	sel := l.selection // snapshot at the transition
	l.mu.Unlock()

	sub := Submission{
		Token:       token,
		LocationID:  sel.LocationID,
		Action:      sel.Action,
		SubmittedBy: sel.Operator,
	}

	receipt, err := l.dispatcher.Dispatch(ctx, sub)
	l.report(Result{Submission: sub, Receipt: receipt, Err: err})

	// Re-arm after the cooldown whether or not the dispatch succeeded;
	// a failed submission must not hang the scanning workflow.
	l.scheduleRearm()
}

func (l *Loop) scheduleRearm() {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Stopped while the submission was outstanding: stay Idle.
	if l.state != StateCooldown {
		return
	}
	l.rearm = time.AfterFunc(l.cooldown, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.state == StateCooldown {
			l.state = StateArmed
		}
		l.rearm = nil
	})
}

func (l *Loop) report(res Result) {
	select {
	case l.results <- res:
	default:
		log.Printf("capture: result channel full, dropping result for token %q", res.Submission.Token)
	}
}

// Run acquires the frame source, arms the loop and feeds every decoded
// frame through the state machine until the context is cancelled or the
// source is exhausted. Device-acquisition failures are returned before
// the loop ever leaves Idle; they are terminal until the operator
// explicitly retries.
func (l *Loop) Run(ctx context.Context, src FrameSource) error {
	if err := src.Open(ctx); err != nil {
		return err
	}
	defer src.Close()

	if err := l.Start(); err != nil {
		return err
	}
	defer l.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case token, ok := <-src.Frames():
			if !ok {
				return nil
			}
			l.HandleFrame(ctx, token)
		}
	}
}
