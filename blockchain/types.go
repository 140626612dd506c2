package blockchain

import (
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// Difficulty is the number of leading hex '0' characters a mined block hash must have.
	Difficulty = 4

	// RewardSender is the sentinel sender of mining reward transactions.
	// Transactions from this sender are exempt from signature verification.
	RewardSender = "0xEA31cD0D90fC35E7Af05ED42B779C3E3Aa45C0Dc"
)

// MiningReward is credited to the miner's reward address for every mined block
var MiningReward = NewAmount(1)

type Hash32 [32]byte

func (h Hash32) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash32) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash32) UnmarshalText(text []byte) error {
	parsed, err := ParseHash32(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash32 decodes a 64 character hex string
func ParseHash32(s string) (Hash32, error) {
	var h Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash length: got %d bytes, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// Transaction is the wire-level transfer record. Only sender, receiver and
// amount are settled on chain; the key and signature authorize admission.
type Transaction struct {
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    Amount `json:"amount"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type Block struct {
	Nonce        uint32   `json:"nonce"`
	PreviousHash Hash32   `json:"previous_hash"`
	Timestamp    uint64   `json:"timestamp"`
	Transactions [][]byte `json:"transactions"`
}

// BlockSummary describes a freshly mined block
type BlockSummary struct {
	Index        int           `json:"index"`
	Hash         Hash32        `json:"hash"`
	Nonce        uint32        `json:"nonce"`
	Transactions int           `json:"transactions"`
	Elapsed      time.Duration `json:"elapsed"`
}
