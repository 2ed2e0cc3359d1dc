package payment

import (
	"log"
	"sync"
	"time"
)

// Confirmer attempts one confirmation of a payment with the gateway.
// Returning (false, nil) means the payment was not observed yet.
type Confirmer interface {
	Confirm(paymentID string) (bool, error)
}

// Sink receives terminal session transitions. PaymentConfirmed is invoked
// once per session on success, even when a scheduled poll and a manual check
// race; an apply that returned an error is retried on the next check, so
// implementations must be idempotent.
type Sink interface {
	PaymentConfirmed(paymentID string) error
	PaymentTimedOut(paymentID string) error
}

type sessionState struct {
	confirmed bool
	timedOut  bool
	inFlight  bool
}

// Orchestrator drives awaiting_payment sessions to confirmed or timed_out.
// One polling loop runs per user; starting a new session replaces the
// previous loop so two loops never race over the same subscription.
type Orchestrator struct {
	confirmer   Confirmer
	sink        Sink
	interval    time.Duration
	maxAttempts int

	mu       sync.Mutex
	loops    map[uint]chan struct{}
	sessions map[string]*sessionState
	last     map[uint]string
}

func NewOrchestrator(confirmer Confirmer, sink Sink, interval time.Duration, maxAttempts int) *Orchestrator {
	return &Orchestrator{
		confirmer:   confirmer,
		sink:        sink,
		interval:    interval,
		maxAttempts: maxAttempts,
		loops:       make(map[uint]chan struct{}),
		sessions:    make(map[string]*sessionState),
		last:        make(map[uint]string),
	}
}

// Watch starts the polling loop for a session: one immediate attempt, then
// fixed-interval retries up to the attempt bound. A prior loop for the same
// user is cancelled first and its settled session state is evicted, so the
// map holds at most one entry per user. The database stays the source of
// truth for evicted sessions.
func (o *Orchestrator) Watch(userID uint, paymentID string) {
	o.mu.Lock()
	if quit, ok := o.loops[userID]; ok {
		close(quit)
	}
	if prev, ok := o.last[userID]; ok && prev != paymentID {
		delete(o.sessions, prev)
	}
	o.last[userID] = paymentID
	quit := make(chan struct{})
	o.loops[userID] = quit
	if _, ok := o.sessions[paymentID]; !ok {
		o.sessions[paymentID] = &sessionState{}
	}
	o.mu.Unlock()

	go o.poll(userID, paymentID, quit)
}

func (o *Orchestrator) poll(userID uint, paymentID string, quit chan struct{}) {
	defer o.clearLoop(userID, quit)

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		confirmed, err := o.attempt(paymentID)
		if err != nil {
			log.Printf("Payment %s confirmation attempt %d failed: %v", paymentID, attempt, err)
		}
		if confirmed {
			return
		}
		if attempt == o.maxAttempts {
			break
		}

		select {
		case <-quit:
			return
		case <-time.After(o.interval):
		}
	}

	o.mu.Lock()
	state := o.sessions[paymentID]
	if state.confirmed || state.timedOut {
		o.mu.Unlock()
		return
	}
	state.timedOut = true
	o.mu.Unlock()

	if err := o.sink.PaymentTimedOut(paymentID); err != nil {
		log.Printf("Could not mark payment %s as timed out: %v", paymentID, err)
	}
}

// CheckNow performs one out-of-band confirmation attempt. Safe to call at any
// time, including after a timeout (the manual recovery path) and after
// confirmation (a no-op success).
func (o *Orchestrator) CheckNow(paymentID string) (bool, error) {
	o.mu.Lock()
	if _, ok := o.sessions[paymentID]; !ok {
		o.sessions[paymentID] = &sessionState{}
	}
	o.mu.Unlock()

	return o.attempt(paymentID)
}

// attempt is the single shared confirmation path. An in-flight flag suppresses
// duplicate concurrent gateway calls; confirmation is recorded once. The
// confirmed latch is only set after the sink applied the payment, so a failed
// apply is retried by the next scheduled or manual check instead of being
// silently dropped.
func (o *Orchestrator) attempt(paymentID string) (bool, error) {
	o.mu.Lock()
	state := o.sessions[paymentID]
	if state.confirmed {
		o.mu.Unlock()
		return true, nil
	}
	if state.inFlight {
		o.mu.Unlock()
		return false, nil
	}
	state.inFlight = true
	o.mu.Unlock()

	confirmed, err := o.confirmer.Confirm(paymentID)
	if confirmed {
		if sinkErr := o.sink.PaymentConfirmed(paymentID); sinkErr != nil {
			log.Printf("Could not apply confirmed payment %s: %v", paymentID, sinkErr)
			o.mu.Lock()
			state.inFlight = false
			o.mu.Unlock()
			return false, sinkErr
		}
		o.mu.Lock()
		state.confirmed = true
		state.timedOut = false
		state.inFlight = false
		o.mu.Unlock()
		return true, nil
	}

	o.mu.Lock()
	state.inFlight = false
	o.mu.Unlock()
	return false, err
}

// StopWatch cancels the user's polling loop, e.g. when the payment flow is
// dismissed. No timers survive the call.
func (o *Orchestrator) StopWatch(userID uint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if quit, ok := o.loops[userID]; ok {
		close(quit)
		delete(o.loops, userID)
	}
}

// Close tears down every polling loop and drops all session state.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for userID, quit := range o.loops {
		close(quit)
		delete(o.loops, userID)
	}
	o.sessions = make(map[string]*sessionState)
	o.last = make(map[uint]string)
}

// Confirmed reports whether the orchestrator has seen this session confirm.
func (o *Orchestrator) Confirmed(paymentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.sessions[paymentID]
	return ok && state.confirmed
}

func (o *Orchestrator) clearLoop(userID uint, quit chan struct{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if current, ok := o.loops[userID]; ok && current == quit {
		delete(o.loops, userID)
	}
}
