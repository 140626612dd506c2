package p2p

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    Range
		wantErr bool
	}{
		{in: "8000-8003", want: Range{8000, 8003}},
		{in: "0-1", want: Range{0, 1}},
		{in: "7", want: Range{7, 7}},
		{in: " 1 - 2 ", want: Range{1, 2}},
		{in: "3-1", wantErr: true},
		{in: "a-b", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseRange(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCandidateAddresses(t *testing.T) {
	got := CandidateAddresses("127.0.0.1", Range{8000, 8001}, Range{0, 1}, "127.0.0.1:8000")
	want := []string{"127.0.0.1:8001", "127.0.0.2:8000", "127.0.0.2:8001"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CandidateAddresses() = %v, want %v", got, want)
	}

	edge := CandidateAddresses("10.0.0.255", Range{1, 1}, Range{0, 1}, "")
	if !reflect.DeepEqual(edge, []string{"10.0.0.255:1"}) {
		t.Errorf("octet overflow not skipped: %v", edge)
	}

	named := CandidateAddresses("localhost", Range{1, 2}, Range{0, 3}, "localhost:1")
	if !reflect.DeepEqual(named, []string{"localhost:2"}) {
		t.Errorf("non-IP host candidates = %v, want [localhost:2]", named)
	}
}

type fakePinger struct {
	mu    sync.Mutex
	alive map[string]bool
	calls int
}

func (f *fakePinger) Ping(_ context.Context, addr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.alive[addr] {
		return nil
	}
	return errors.New("connection refused")
}

func (f *fakePinger) set(addr string, alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[addr] = alive
}

func (f *fakePinger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDiscoveryRefresh(t *testing.T) {
	pinger := &fakePinger{alive: map[string]bool{"127.0.0.1:8001": true, "static:1": true}}
	pm := NewPeerManager("", 0)
	d := NewDiscovery(DiscoveryConfig{
		Host:      "127.0.0.1",
		Ports:     Range{8000, 8003},
		IPOffsets: Range{0, 0},
		Static:    []string{"static:1"},
		Logger:    zerolog.Nop(),
	}, pm, pinger)

	d.Seed("127.0.0.1:8000")
	if got := len(pm.Candidates()); got != 4 {
		t.Fatalf("candidates = %d, want 4", got)
	}

	d.Refresh(context.Background())
	want := []string{"127.0.0.1:8001", "static:1"}
	if got := pm.Neighbors(); !reflect.DeepEqual(got, want) {
		t.Errorf("Neighbors() = %v, want %v", got, want)
	}

	pinger.set("127.0.0.1:8001", false)
	pinger.set("127.0.0.1:8003", true)
	d.Refresh(context.Background())
	want = []string{"127.0.0.1:8003", "static:1"}
	if got := pm.Neighbors(); !reflect.DeepEqual(got, want) {
		t.Errorf("Neighbors() after change = %v, want %v", got, want)
	}
}

func TestDiscoveryRunStopsOnCancel(t *testing.T) {
	pinger := &fakePinger{alive: map[string]bool{}}
	pm := NewPeerManager("", 0)
	d := NewDiscovery(DiscoveryConfig{
		Static:   []string{"a:1"},
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
	}, pm, pinger)
	d.Seed("self:1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for pinger.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pinger.callCount() < 3 {
		t.Fatalf("Run probed %d times, want periodic probing", pinger.callCount())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
