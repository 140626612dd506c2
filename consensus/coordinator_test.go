package consensus

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgernet/blockchain"
	"ledgernet/blockchain/store"
	"ledgernet/mocks"

	"github.com/rs/zerolog"
)

const testDifficulty = 2

func testConfig() Config {
	return Config{
		PeerTimeout:  time.Second,
		MaxJitter:    0,
		ResolveDelay: 10 * time.Millisecond,
		Difficulty:   testDifficulty,
		Logger:       zerolog.Nop(),
	}
}

func newStore(reward string) *store.MemoryChainStore {
	return store.NewMemoryChainStore(
		blockchain.NewChain(reward, blockchain.WithDifficulty(testDifficulty)),
		zerolog.Nop(),
	)
}

func buildChain(t *testing.T, reward string, mined int) []*blockchain.Block {
	t.Helper()
	blocks, err := mocks.BuildChain(reward, mined, testDifficulty)
	if err != nil {
		t.Fatalf("BuildChain() failed: %v", err)
	}
	return blocks
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestResolveConflictAdoptsLongerValidChain(t *testing.T) {
	n1 := newStore("n1")
	for i := 0; i < 2; i++ {
		if _, err := n1.Mine(); err != nil {
			t.Fatalf("Mine() failed: %v", err)
		}
	}
	n2 := newStore("n2")

	client := mocks.NewPeerClient()
	client.Serve("n1:8000", n1.GetBlocks())

	c := NewCoordinator(testConfig(), n2, client, mocks.StaticNeighbors{"n1:8000"})
	replaced, err := c.ResolveConflict(context.Background())
	if err != nil {
		t.Fatalf("ResolveConflict() failed: %v", err)
	}
	if !replaced {
		t.Fatal("ResolveConflict() did not replace a shorter chain")
	}

	got, want := n2.GetBlocks(), n1.GetBlocks()
	if len(got) != 3 || len(got) != len(want) {
		t.Fatalf("chain length = %d, want 3", len(got))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("block %d differs from neighbor", i)
		}
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("phase = %s after resolution, want idle", c.Phase())
	}
	if stats := c.Stats(); stats.Replacements != 1 || stats.Resolutions != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestResolveConflictReplaceRules(t *testing.T) {
	valid3 := buildChain(t, "peer", 3)

	invalid3 := buildChain(t, "peer", 3)
	invalid3[2].PreviousHash = blockchain.Hash32{0x01}

	unworked := buildChain(t, "peer", 3)
	for blockchain.MeetsDifficulty(unworked[3].Hash(), testDifficulty) {
		unworked[3].IncrementNonce()
	}

	valid1 := buildChain(t, "peer", 1)

	tests := []struct {
		name         string
		localMined   int
		candidate    []*blockchain.Block
		wantReplaced bool
		wantLen      int
	}{
		{"longer and valid", 1, valid3, true, 4},
		{"longer but broken link", 1, invalid3, false, 2},
		{"longer but insufficient work", 1, unworked, false, 2},
		{"valid but same length", 1, valid1, false, 2},
		{"valid but shorter", 3, valid1, false, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := newStore("local")
			for i := 0; i < tt.localMined; i++ {
				if _, err := local.Mine(); err != nil {
					t.Fatalf("Mine() failed: %v", err)
				}
			}
			before := local.GetBlocks()

			client := mocks.NewPeerClient()
			client.Serve("peer", tt.candidate)
			c := NewCoordinator(testConfig(), local, client, mocks.StaticNeighbors{"peer"})

			replaced, err := c.ResolveConflict(context.Background())
			if err != nil {
				t.Fatalf("ResolveConflict() failed: %v", err)
			}
			if replaced != tt.wantReplaced {
				t.Errorf("replaced = %v, want %v", replaced, tt.wantReplaced)
			}
			if got := local.GetChainHeight(); got != tt.wantLen {
				t.Errorf("chain length = %d, want %d", got, tt.wantLen)
			}
			if !tt.wantReplaced && !local.GetHeadBlock().Equal(before[len(before)-1]) {
				t.Error("local tip changed without a replacement")
			}
		})
	}
}

func TestResolveConflictSkipsFailingNeighbor(t *testing.T) {
	local := newStore("local")
	client := mocks.NewPeerClient()
	client.Fail("down")
	client.Serve("short", buildChain(t, "short", 1))
	client.Serve("long", buildChain(t, "long", 4))

	neighbors := mocks.StaticNeighbors{"down", "short", "long"}
	c := NewCoordinator(testConfig(), local, client, neighbors)

	replaced, err := c.ResolveConflict(context.Background())
	if !replaced {
		t.Fatal("reconciliation stopped at the unreachable neighbor")
	}
	if local.GetChainHeight() != 5 {
		t.Errorf("chain length = %d, want 5", local.GetChainHeight())
	}

	var peerErrs *PeerErrors
	if !errors.As(err, &peerErrs) {
		t.Fatalf("error = %v, want *PeerErrors", err)
	}
	if len(peerErrs.Errors) != 1 || peerErrs.Errors[0].Addr != "down" {
		t.Errorf("unexpected peer errors %v", peerErrs)
	}
	if !errors.Is(err, mocks.ErrUnreachable) {
		t.Errorf("error %v does not wrap ErrUnreachable", err)
	}

	fetched, _, _ := client.Calls()
	if len(fetched) != 3 {
		t.Errorf("fetched %v, want all three neighbors", fetched)
	}
	if c.Stats().PeerFailures != 1 {
		t.Errorf("peer failures = %d, want 1", c.Stats().PeerFailures)
	}
}

func TestResolveConflictTracksBestLength(t *testing.T) {
	local := newStore("local")
	client := mocks.NewPeerClient()
	long := buildChain(t, "a", 4)
	shorter := buildChain(t, "b", 2)
	client.Serve("a", long)
	client.Serve("b", shorter)

	c := NewCoordinator(testConfig(), local, client, mocks.StaticNeighbors{"a", "b"})
	if _, err := c.ResolveConflict(context.Background()); err != nil {
		t.Fatalf("ResolveConflict() failed: %v", err)
	}
	if !local.GetHeadBlock().Equal(long[len(long)-1]) {
		t.Error("a shorter chain replaced the longest one")
	}
	if c.Stats().Replacements != 1 {
		t.Errorf("replacements = %d, want 1", c.Stats().Replacements)
	}
}

func TestResolveConflictCancelled(t *testing.T) {
	local := newStore("local")
	client := mocks.NewPeerClient()
	client.Serve("a", buildChain(t, "a", 2))

	cfg := testConfig()
	cfg.MaxJitter = time.Hour
	c := NewCoordinator(cfg, local, client, mocks.StaticNeighbors{"a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	replaced, err := c.ResolveConflict(ctx)
	if replaced {
		t.Error("replaced after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestPropagation(t *testing.T) {
	local := newStore("local")
	client := mocks.NewPeerClient()
	client.Fail("down")
	neighbors := mocks.StaticNeighbors{"a", "b", "down"}
	c := NewCoordinator(testConfig(), local, client, neighbors)

	_, tx, err := mocks.SignedTransfer("receiver", blockchain.NewAmount(3))
	if err != nil {
		t.Fatalf("SignedTransfer() failed: %v", err)
	}

	waitClosed(t, c.PropagateTransaction(context.Background(), tx))
	for _, addr := range []string{"a", "b"} {
		synced := client.SyncedTo(addr)
		if len(synced) != 1 || synced[0] != tx {
			t.Errorf("neighbor %s received %v, want exactly the transaction", addr, synced)
		}
	}

	waitClosed(t, c.PropagateMinedNotification(context.Background()))
	waitClosed(t, c.BuildConsensus(context.Background()))

	_, cleared, triggered := client.Calls()
	if len(cleared) != 2 || cleared[0] != "a" || cleared[1] != "b" {
		t.Errorf("cleared = %v, want [a b]", cleared)
	}
	if len(triggered) != 2 {
		t.Errorf("triggered = %v, want two neighbors", triggered)
	}
	if got := c.Stats().PropagationFailures; got != 3 {
		t.Errorf("propagation failures = %d, want 3", got)
	}
}

func TestScheduleResolve(t *testing.T) {
	local := newStore("local")
	client := mocks.NewPeerClient()
	client.Serve("a", buildChain(t, "a", 2))
	c := NewCoordinator(testConfig(), local, client, mocks.StaticNeighbors{"a"})

	waitClosed(t, c.ScheduleResolve())
	if local.GetChainHeight() != 3 {
		t.Errorf("chain length = %d, want 3", local.GetChainHeight())
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{
		PhaseIdle:       "idle",
		PhaseFetching:   "fetching",
		PhaseValidating: "validating",
		PhaseAdopting:   "adopting",
		Phase(99):       "unknown",
	} {
		if p.String() != want {
			t.Errorf("Phase(%d).String() = %s, want %s", p, p.String(), want)
		}
	}
}
