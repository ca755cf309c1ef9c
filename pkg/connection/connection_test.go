package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeLink struct {
	closed atomic.Bool
}

func (l *fakeLink) Close() error {
	l.closed.Store(true)
	return nil
}

func fastConfig() Config {
	return Config{
		ConnectTimeout: time.Second,
		Backoff: BackoffConfig{
			Initial:    10 * time.Millisecond,
			Max:        40 * time.Millisecond,
			Multiplier: 2.0,
		},
		MaxAttempts: 3,
	}
}

func waitForState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("State() = %v, want %v", m.State(), want)
}

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			5 * time.Second,
			5 * time.Second, // Should stay at max
		}

		for i, exp := range expected {
			got := b.Next()
			if got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("Sequence", func(t *testing.T) {
		got := BackoffSequence(DefaultBackoffConfig(), DefaultMaxAttempts)
		want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("seq[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Jitter: 0.25})

		samples := make([]time.Duration, 10)
		for i := range samples {
			samples[i] = b.Peek()
		}

		for i, s := range samples {
			if s < 1*time.Second || s > time.Duration(float64(1*time.Second)*1.25)+time.Millisecond {
				t.Errorf("Sample %d: %v out of expected range [1s, 1.25s]", i, s)
			}
		}

		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical - jitter may not be working")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()

		for i := 0; i < 3; i++ {
			b.Next()
		}
		if b.Current() <= InitialBackoff {
			t.Error("Backoff should have increased")
		}

		b.Reset()

		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("MaxBelowInitial", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Initial: time.Second, Max: time.Millisecond})
		if got := b.Next(); got != time.Second {
			t.Errorf("Next() = %v, want 1s", got)
		}
		if got := b.Next(); got != time.Second {
			t.Errorf("Next() = %v, want 1s (max raised to initial)", got)
		}
	})
}

func TestScheduler(t *testing.T) {
	t.Run("Runs", func(t *testing.T) {
		s := NewScheduler()
		done := make(chan struct{})
		s.Schedule(5*time.Millisecond, func() { close(done) })

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task did not run")
		}
		if s.Pending() {
			t.Error("Pending() = true after run")
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		s := NewScheduler()
		var ran atomic.Bool
		s.Schedule(20*time.Millisecond, func() { ran.Store(true) })
		if !s.Pending() {
			t.Error("Pending() = false after Schedule")
		}
		s.Cancel()

		time.Sleep(50 * time.Millisecond)
		if ran.Load() {
			t.Error("cancelled task ran")
		}
	})

	t.Run("Replace", func(t *testing.T) {
		s := NewScheduler()
		var first, second atomic.Bool
		s.Schedule(20*time.Millisecond, func() { first.Store(true) })
		s.Schedule(20*time.Millisecond, func() { second.Store(true) })

		time.Sleep(60 * time.Millisecond)
		if first.Load() {
			t.Error("replaced task ran")
		}
		if !second.Load() {
			t.Error("replacement task did not run")
		}
	})
}

func TestManager(t *testing.T) {
	t.Run("InitialState", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) (Link, error) { return &fakeLink{}, nil })

		if m.State() != StateDisconnected {
			t.Errorf("Initial state = %v, want StateDisconnected", m.State())
		}
		if m.IsConnected() {
			t.Error("IsConnected() = true, want false")
		}
	})

	t.Run("SuccessfulConnect", func(t *testing.T) {
		link := &fakeLink{}
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) { return link, nil }, fastConfig())
		defer m.Disconnect()

		var connectedWith Link
		m.OnConnected(func(l Link) {
			connectedWith = l
		})

		if err := m.Connect(context.Background()); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}

		if connectedWith != link {
			t.Error("OnConnected did not run before Connect returned")
		}
		if m.State() != StateConnected {
			t.Errorf("State() = %v, want StateConnected", m.State())
		}
		if m.Link() != link {
			t.Error("Link() does not return the established link")
		}
	})

	t.Run("AlreadyConnected", func(t *testing.T) {
		var dials atomic.Int32
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			dials.Add(1)
			return &fakeLink{}, nil
		}, fastConfig())
		defer m.Disconnect()

		_ = m.Connect(context.Background())
		if err := m.Connect(context.Background()); err != nil {
			t.Errorf("second Connect() error = %v, want nil", err)
		}
		if dials.Load() != 1 {
			t.Errorf("dials = %d, want 1", dials.Load())
		}
	})

	t.Run("FailedConnect", func(t *testing.T) {
		cause := errors.New("refused")
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) { return nil, cause }, fastConfig())

		err := m.Connect(context.Background())
		if !errors.Is(err, ErrConnectionError) || !errors.Is(err, cause) {
			t.Errorf("Connect() error = %v, want ErrConnectionError wrapping cause", err)
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected", m.State())
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		late := &fakeLink{}
		cfg := fastConfig()
		cfg.ConnectTimeout = 30 * time.Millisecond
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			// Ignores ctx on purpose.
			time.Sleep(100 * time.Millisecond)
			return late, nil
		}, cfg)

		start := time.Now()
		err := m.Connect(context.Background())
		if !errors.Is(err, ErrConnectionTimeout) {
			t.Fatalf("Connect() error = %v, want ErrConnectionTimeout", err)
		}
		if elapsed := time.Since(start); elapsed > 90*time.Millisecond {
			t.Errorf("Connect() took %v, want about the timeout", elapsed)
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected", m.State())
		}

		time.Sleep(150 * time.Millisecond)
		if !late.closed.Load() {
			t.Error("late link was not closed")
		}
	})

	t.Run("ConcurrentConnectDialsOnce", func(t *testing.T) {
		var dials atomic.Int32
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			dials.Add(1)
			time.Sleep(20 * time.Millisecond)
			return &fakeLink{}, nil
		}, fastConfig())
		defer m.Disconnect()

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := m.Connect(context.Background()); err != nil {
					t.Errorf("Connect() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if dials.Load() != 1 {
			t.Errorf("dials = %d, want 1", dials.Load())
		}
	})

	t.Run("ReconnectAfterLoss", func(t *testing.T) {
		var dials atomic.Int32
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			dials.Add(1)
			return &fakeLink{}, nil
		}, fastConfig())
		defer m.Disconnect()

		connected := make(chan struct{}, 2)
		m.OnConnected(func(Link) { connected <- struct{}{} })

		if err := m.Connect(context.Background()); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		<-connected

		first := m.Link()
		m.NotifyConnectionLost(first, errors.New("eof"))
		if s := m.State(); s != StateReconnecting {
			t.Errorf("State() after loss = %v, want StateReconnecting", s)
		}
		if !first.(*fakeLink).closed.Load() {
			t.Error("lost link not closed")
		}

		select {
		case <-connected:
		case <-time.After(time.Second):
			t.Fatal("did not reconnect")
		}
		if m.State() != StateConnected {
			t.Errorf("State() = %v, want StateConnected", m.State())
		}
		if m.Attempts() != 0 {
			t.Errorf("Attempts() = %d after success, want 0", m.Attempts())
		}
	})

	t.Run("StaleLossIgnored", func(t *testing.T) {
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) { return &fakeLink{}, nil }, fastConfig())
		defer m.Disconnect()

		_ = m.Connect(context.Background())
		m.NotifyConnectionLost(&fakeLink{}, errors.New("old socket"))

		if m.State() != StateConnected {
			t.Errorf("State() = %v, want StateConnected", m.State())
		}
	})

	t.Run("ExhaustsAttempts", func(t *testing.T) {
		var fail atomic.Bool
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			if fail.Load() {
				return nil, errors.New("unreachable")
			}
			return &fakeLink{}, nil
		}, fastConfig())
		defer m.Disconnect()

		var (
			mu     sync.Mutex
			delays []time.Duration
		)
		m.OnReconnecting(func(attempt int, delay time.Duration) {
			mu.Lock()
			delays = append(delays, delay)
			mu.Unlock()
		})
		failed := make(chan error, 1)
		m.OnFailed(func(err error) { failed <- err })

		_ = m.Connect(context.Background())
		fail.Store(true)
		m.NotifyConnectionLost(m.Link(), errors.New("eof"))

		select {
		case err := <-failed:
			if !errors.Is(err, ErrConnectionError) {
				t.Errorf("OnFailed error = %v, want ErrConnectionError", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("did not reach FAILED")
		}

		if m.State() != StateFailed {
			t.Errorf("State() = %v, want StateFailed", m.State())
		}
		mu.Lock()
		defer mu.Unlock()
		want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
		if len(delays) != len(want) {
			t.Fatalf("delays = %v, want %v", delays, want)
		}
		for i := range want {
			if delays[i] != want[i] {
				t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
			}
		}
	})

	t.Run("ReconnectNowFromFailed", func(t *testing.T) {
		var fail atomic.Bool
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			if fail.Load() {
				return nil, errors.New("unreachable")
			}
			return &fakeLink{}, nil
		}, fastConfig())
		defer m.Disconnect()

		_ = m.Connect(context.Background())
		fail.Store(true)
		m.NotifyConnectionLost(m.Link(), errors.New("eof"))
		waitForState(t, m, StateFailed)

		if m.ReconnectNow() == false {
			t.Fatal("ReconnectNow() = false in StateFailed")
		}
		fail.Store(false)
		waitForState(t, m, StateConnected)
	})

	t.Run("ReconnectNowBypassesBackoff", func(t *testing.T) {
		var fail atomic.Bool
		cfg := fastConfig()
		cfg.Backoff.Initial = time.Hour
		cfg.Backoff.Max = time.Hour
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			if fail.Load() {
				return nil, errors.New("unreachable")
			}
			return &fakeLink{}, nil
		}, cfg)
		defer m.Disconnect()

		_ = m.Connect(context.Background())
		m.NotifyConnectionLost(m.Link(), errors.New("eof"))
		if m.State() != StateReconnecting {
			t.Fatalf("State() = %v, want StateReconnecting", m.State())
		}

		if !m.ReconnectNow() {
			t.Fatal("ReconnectNow() = false in StateReconnecting")
		}
		waitForState(t, m, StateConnected)
	})

	t.Run("ReconnectNowIgnoredWhenConnected", func(t *testing.T) {
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) { return &fakeLink{}, nil }, fastConfig())
		defer m.Disconnect()
		_ = m.Connect(context.Background())

		if m.ReconnectNow() {
			t.Error("ReconnectNow() = true in StateConnected")
		}
	})

	t.Run("DisconnectCancelsRetry", func(t *testing.T) {
		var dials atomic.Int32
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			dials.Add(1)
			return &fakeLink{}, nil
		}, fastConfig())

		_ = m.Connect(context.Background())
		m.NotifyConnectionLost(m.Link(), errors.New("eof"))
		m.Disconnect()

		time.Sleep(60 * time.Millisecond)
		if dials.Load() != 1 {
			t.Errorf("dials = %d, want 1 (no retry after Disconnect)", dials.Load())
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected", m.State())
		}
	})

	t.Run("DisconnectDuringDial", func(t *testing.T) {
		late := &fakeLink{}
		release := make(chan struct{})
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) {
			<-release
			return late, nil
		}, fastConfig())

		errCh := make(chan error, 1)
		go func() { errCh <- m.Connect(context.Background()) }()

		waitForState(t, m, StateConnecting)
		m.Disconnect()
		close(release)

		err := <-errCh
		if !errors.Is(err, ErrAborted) {
			t.Errorf("Connect() error = %v, want ErrAborted", err)
		}
		if !errors.Is(err, ErrConnectionError) {
			t.Errorf("Connect() error = %v, want ErrConnectionError", err)
		}
		time.Sleep(20 * time.Millisecond)
		if !late.closed.Load() {
			t.Error("orphaned link was not closed")
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected", m.State())
		}
	})

	t.Run("DisconnectIdempotent", func(t *testing.T) {
		var changes atomic.Int32
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) { return &fakeLink{}, nil }, fastConfig())
		_ = m.Connect(context.Background())
		m.OnStateChange(func(oldState, newState State) { changes.Add(1) })

		m.Disconnect()
		m.Disconnect()

		if changes.Load() != 1 {
			t.Errorf("state changes = %d, want 1", changes.Load())
		}
	})

	t.Run("LossNeverReportsDisconnected", func(t *testing.T) {
		m := NewManagerWithConfig(func(ctx context.Context) (Link, error) { return &fakeLink{}, nil }, fastConfig())
		_ = m.Connect(context.Background())

		var seen []State
		var mu sync.Mutex
		m.OnStateChange(func(oldState, newState State) {
			mu.Lock()
			seen = append(seen, newState)
			mu.Unlock()
		})

		m.NotifyConnectionLost(m.Link(), errors.New("eof"))
		waitForState(t, m, StateConnected)

		mu.Lock()
		defer mu.Unlock()
		if len(seen) == 0 || seen[0] != StateReconnecting {
			t.Fatalf("states = %v, want RECONNECTING first", seen)
		}
		for _, st := range seen {
			if st == StateDisconnected {
				t.Errorf("states = %v, loss must not report DISCONNECTED", seen)
			}
		}
	})
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "DISCONNECTED"},
		{StateConnecting, "CONNECTING"},
		{StateConnected, "CONNECTED"},
		{StateReconnecting, "RECONNECTING"},
		{StateFailed, "FAILED"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
