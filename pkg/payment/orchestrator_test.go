package payment

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfirmer struct {
	mu       sync.Mutex
	attempts int
	result   bool
}

func (f *fakeConfirmer) Confirm(paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return f.result, nil
}

func (f *fakeConfirmer) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeConfirmer) setResult(result bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = result
}

type fakeSink struct {
	mu        sync.Mutex
	confirmed int
	timedOut  int
	signal    chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{signal: make(chan struct{}, 16)}
}

func (s *fakeSink) PaymentConfirmed(paymentID string) error {
	s.mu.Lock()
	s.confirmed++
	s.mu.Unlock()
	s.signal <- struct{}{}
	return nil
}

func (s *fakeSink) PaymentTimedOut(paymentID string) error {
	s.mu.Lock()
	s.timedOut++
	s.mu.Unlock()
	s.signal <- struct{}{}
	return nil
}

func (s *fakeSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed, s.timedOut
}

// flakySink fails the first apply attempts, like a database hiccup while the
// gateway already confirmed.
type flakySink struct {
	*fakeSink
	failMu   sync.Mutex
	failures int
	calls    int
}

func (s *flakySink) PaymentConfirmed(paymentID string) error {
	s.failMu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.failMu.Unlock()
	if fail {
		return errors.New("database unavailable")
	}
	return s.fakeSink.PaymentConfirmed(paymentID)
}

func (s *flakySink) callCount() int {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.calls
}

func waitSignal(t *testing.T, s *fakeSink) {
	t.Helper()
	select {
	case <-s.signal:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sink transition")
	}
}

func TestWatchConfirmsImmediately(t *testing.T) {
	confirmer := &fakeConfirmer{result: true}
	sink := newFakeSink()
	orch := NewOrchestrator(confirmer, sink, time.Millisecond, 40)
	defer orch.Close()

	orch.Watch(1, "pay-1")
	waitSignal(t, sink)

	confirmed, timedOut := sink.counts()
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 0, timedOut)
	assert.True(t, orch.Confirmed("pay-1"))
	assert.Equal(t, 1, confirmer.attemptCount())
}

func TestDoubleConfirmationIsNoOp(t *testing.T) {
	confirmer := &fakeConfirmer{result: true}
	sink := newFakeSink()
	orch := NewOrchestrator(confirmer, sink, time.Millisecond, 40)
	defer orch.Close()

	orch.Watch(1, "pay-1")
	waitSignal(t, sink)

	// A manual check racing the scheduled poll must succeed without a second
	// confirmed transition.
	ok, err := orch.CheckNow("pay-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = orch.CheckNow("pay-1")
	require.NoError(t, err)
	assert.True(t, ok)

	confirmed, _ := sink.counts()
	assert.Equal(t, 1, confirmed)
	// Confirmed sessions never reach the gateway again
	assert.Equal(t, 1, confirmer.attemptCount())
}

func TestPollTimesOutAfterAttemptBound(t *testing.T) {
	confirmer := &fakeConfirmer{result: false}
	sink := newFakeSink()
	orch := NewOrchestrator(confirmer, sink, time.Millisecond, 40)
	defer orch.Close()

	orch.Watch(1, "pay-1")
	waitSignal(t, sink)

	confirmed, timedOut := sink.counts()
	assert.Equal(t, 0, confirmed)
	assert.Equal(t, 1, timedOut)
	assert.Equal(t, 40, confirmer.attemptCount())

	// No further scheduled attempts after the bound
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 40, confirmer.attemptCount())
}

func TestManualRecheckRecoversTimedOutSession(t *testing.T) {
	confirmer := &fakeConfirmer{result: false}
	sink := newFakeSink()
	orch := NewOrchestrator(confirmer, sink, time.Millisecond, 3)
	defer orch.Close()

	orch.Watch(1, "pay-1")
	waitSignal(t, sink)

	_, timedOut := sink.counts()
	require.Equal(t, 1, timedOut)

	// The payment lands late; one manual re-check recovers the session.
	confirmer.setResult(true)
	ok, err := orch.CheckNow("pay-1")
	require.NoError(t, err)
	assert.True(t, ok)

	waitSignal(t, sink)
	confirmed, _ := sink.counts()
	assert.Equal(t, 1, confirmed)
	assert.True(t, orch.Confirmed("pay-1"))
}

func TestFailedApplyIsRetriedNotLost(t *testing.T) {
	confirmer := &fakeConfirmer{result: true}
	sink := &flakySink{fakeSink: newFakeSink(), failures: 1}
	orch := NewOrchestrator(confirmer, sink, time.Hour, 40)
	defer orch.Close()

	// Gateway confirms but the apply fails; the check must not report success.
	ok, err := orch.CheckNow("pay-1")
	require.Error(t, err)
	assert.False(t, ok)
	assert.False(t, orch.Confirmed("pay-1"))

	// The next manual check re-applies and succeeds.
	ok, err = orch.CheckNow("pay-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, orch.Confirmed("pay-1"))

	confirmed, _ := sink.counts()
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 2, sink.callCount())
	assert.Equal(t, 2, confirmer.attemptCount())
}

func TestReplacedSessionStateIsEvicted(t *testing.T) {
	confirmer := &fakeConfirmer{result: true}
	sink := newFakeSink()
	orch := NewOrchestrator(confirmer, sink, time.Millisecond, 40)
	defer orch.Close()

	orch.Watch(1, "pay-old")
	waitSignal(t, sink)
	require.True(t, orch.Confirmed("pay-old"))

	orch.Watch(1, "pay-new")
	waitSignal(t, sink)

	// Settled state is dropped once the user starts a new payment flow; the
	// database keeps the authoritative record.
	assert.False(t, orch.Confirmed("pay-old"))
	assert.True(t, orch.Confirmed("pay-new"))
}

func TestNewWatchReplacesPreviousLoop(t *testing.T) {
	confirmer := &fakeConfirmer{result: false}
	sink := newFakeSink()
	orch := NewOrchestrator(confirmer, sink, 50*time.Millisecond, 1000)
	defer orch.Close()

	orch.Watch(1, "pay-old")
	orch.Watch(1, "pay-new")

	time.Sleep(10 * time.Millisecond)
	before := confirmer.attemptCount()
	time.Sleep(120 * time.Millisecond)
	after := confirmer.attemptCount()

	// Only one loop is still scheduling attempts
	assert.LessOrEqual(t, after-before, 3)
}

func TestStopWatchCancelsPolling(t *testing.T) {
	confirmer := &fakeConfirmer{result: false}
	sink := newFakeSink()
	orch := NewOrchestrator(confirmer, sink, 5*time.Millisecond, 1000)

	orch.Watch(1, "pay-1")
	time.Sleep(15 * time.Millisecond)
	orch.StopWatch(1)

	settled := confirmer.attemptCount()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, confirmer.attemptCount(), settled+1, "no attempts after teardown")

	_, timedOut := sink.counts()
	assert.Equal(t, 0, timedOut, "a cancelled loop never times the session out")
}

func TestConcurrentManualChecks(t *testing.T) {
	confirmer := &fakeConfirmer{result: true}
	sink := newFakeSink()
	orch := NewOrchestrator(confirmer, sink, time.Millisecond, 40)
	defer orch.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orch.CheckNow("pay-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	waitSignal(t, sink)
	confirmed, _ := sink.counts()
	assert.Equal(t, 1, confirmed)
}
