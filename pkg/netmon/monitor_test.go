package netmon

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transitions struct {
	mu  sync.Mutex
	got [][2]Reachability
}

func (tr *transitions) record(from, to Reachability) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.got = append(tr.got, [2]Reachability{from, to})
}

func (tr *transitions) all() [][2]Reachability {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([][2]Reachability(nil), tr.got...)
}

func TestReachabilityString(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Unknown.String())
	assert.Equal(t, "REACHABLE", Reachable.String())
	assert.Equal(t, "UNREACHABLE", Unreachable.String())
	assert.Equal(t, "INVALID", Reachability(9).String())
}

func TestNotifyEmitsOnlyTransitions(t *testing.T) {
	m := NewMonitor(nil, Config{})
	tr := &transitions{}
	m.OnChange(tr.record)

	m.Notify(Unreachable)
	m.Notify(Unreachable)
	m.Notify(Reachable)
	m.Notify(Reachable)
	m.Notify(Unknown)
	m.Notify(Unreachable)

	assert.Equal(t, [][2]Reachability{
		{Unknown, Unreachable},
		{Unreachable, Reachable},
		{Reachable, Unreachable},
	}, tr.all())
	assert.Equal(t, Unreachable, m.State())
}

func TestStartWithoutProbe(t *testing.T) {
	m := NewMonitor(nil, Config{})
	m.Start(context.Background())
	assert.False(t, m.IsRunning())
	m.Stop()
}

func TestProbePolling(t *testing.T) {
	var up atomic.Bool
	probe := ProbeFunc(func(ctx context.Context) error {
		if up.Load() {
			return nil
		}
		return errors.New("no route to host")
	})

	m := NewMonitor(probe, Config{Interval: 5 * time.Millisecond})
	tr := &transitions{}
	reachable := make(chan struct{}, 1)
	m.OnChange(func(from, to Reachability) {
		tr.record(from, to)
		if to == Reachable {
			select {
			case reachable <- struct{}{}:
			default:
			}
		}
	})

	m.Start(context.Background())
	defer m.Stop()
	require.True(t, m.IsRunning())

	require.Eventually(t, func() bool { return m.State() == Unreachable }, time.Second, time.Millisecond)

	up.Store(true)
	select {
	case <-reachable:
	case <-time.After(time.Second):
		t.Fatal("no reachable transition")
	}

	assert.Equal(t, [][2]Reachability{
		{Unknown, Unreachable},
		{Unreachable, Reachable},
	}, tr.all())
}

func TestStopIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(ProbeFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}), Config{Interval: time.Millisecond})

	m.Start(context.Background())
	m.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, time.Millisecond)

	m.Stop()
	m.Stop()
	assert.False(t, m.IsRunning())

	after := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestProbeTimeout(t *testing.T) {
	m := NewMonitor(ProbeFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), Config{Interval: time.Hour, ProbeTimeout: 5 * time.Millisecond})

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return m.State() == Unreachable }, time.Second, time.Millisecond)
}

func TestDialProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	p := &DialProbe{Address: ln.Addr().String()}
	assert.NoError(t, p.Check(context.Background()))

	addr := ln.Addr().String()
	ln.Close()
	p = &DialProbe{Address: addr}
	assert.Error(t, p.Check(context.Background()))
}
