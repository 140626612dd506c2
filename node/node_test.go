package node

import (
	"context"
	"testing"
	"time"

	"ledgernet/blockchain"
	"ledgernet/p2p"
)

func testConfig(id string) Config {
	config := DefaultConfig()
	config.NodeID = id
	config.Port = 0
	config.PortRange = p2p.Range{}
	config.IPRange = p2p.Range{}
	config.Difficulty = 1
	config.MaxJitter = 0
	config.ResolveDelay = 10 * time.Millisecond
	config.DiscoveryInterval = 100 * time.Millisecond
	config.PeerTimeout = time.Second
	return config
}

func startNode(t *testing.T, config Config) *FullNode {
	t.Helper()

	n, err := NewFullNode(config)
	if err != nil {
		t.Fatalf("NewFullNode failed: %v", err)
	}
	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		if err := n.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"free port", func(c *Config) { c.Port = 0 }, false},
		{"empty host", func(c *Config) { c.Host = "" }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"inverted port range", func(c *Config) { c.PortRange = p2p.Range{Min: 9, Max: 1} }, true},
		{"difficulty too large", func(c *Config) { c.Difficulty = 65 }, true},
		{"negative jitter", func(c *Config) { c.MaxJitter = -time.Second }, true},
		{"reward sender as miner", func(c *Config) { c.RewardAddress = blockchain.RewardSender }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFullNodeCreation(t *testing.T) {
	n, err := NewFullNode(testConfig("test-full-node"))
	if err != nil {
		t.Fatalf("NewFullNode failed: %v", err)
	}

	if n.ID() != "test-full-node" {
		t.Errorf("Expected NodeID 'test-full-node', got '%s'", n.ID())
	}
	if n.Wallet() == nil {
		t.Fatal("Expected a generated reward wallet")
	}
	if n.Store().RewardAddress() != n.Wallet().Address() {
		t.Errorf("Reward address does not match node wallet")
	}
	if h := n.Store().GetChainHeight(); h != 1 {
		t.Errorf("Expected genesis-only chain, got height %d", h)
	}
	if n.Addr() != "" {
		t.Errorf("Expected no address before Start, got %q", n.Addr())
	}
}

func TestFullNodeConfiguredRewardAddress(t *testing.T) {
	config := testConfig("")
	config.RewardAddress = "miner-address"

	n, err := NewFullNode(config)
	if err != nil {
		t.Fatalf("NewFullNode failed: %v", err)
	}
	if n.Wallet() != nil {
		t.Errorf("Expected no generated wallet")
	}
	if n.Store().RewardAddress() != "miner-address" {
		t.Errorf("Expected configured reward address, got %q", n.Store().RewardAddress())
	}
	if n.ID() != "miner-ad" {
		t.Errorf("Expected derived id 'miner-ad', got %q", n.ID())
	}
}

func TestFullNodeStartStop(t *testing.T) {
	n := startNode(t, testConfig("start-stop"))

	if n.Addr() == "" {
		t.Fatal("Expected a listen address after Start")
	}

	client := p2p.NewClient(time.Second)
	if err := client.Ping(context.Background(), n.Addr()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if err := n.Start(context.Background()); err == nil {
		t.Errorf("Expected second Start to fail")
	}
}
