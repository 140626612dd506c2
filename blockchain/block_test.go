package blockchain

import (
	"crypto/sha256"
	"math"
	"testing"
)

func TestBlockHashDeterministic(t *testing.T) {
	b := &Block{
		Nonce:        42,
		PreviousHash: Hash32{0x01, 0x02},
		Timestamp:    1700000000000000000,
		Transactions: [][]byte{[]byte("first"), []byte("second")},
	}

	first := b.Hash()
	second := b.Hash()
	if first != second {
		t.Fatalf("hash changed between calls: %s vs %s", first, second)
	}

	copied := b.Clone()
	if copied.Hash() != first {
		t.Errorf("clone hash = %s, want %s", copied.Hash(), first)
	}
	if !b.Equal(copied) {
		t.Error("Equal() = false for identical blocks")
	}
}

func TestBlockHashPreimageLayout(t *testing.T) {
	b := &Block{
		Nonce:        0x01020304,
		PreviousHash: Hash32{0xaa, 0xbb},
		Timestamp:    0x1122334455667788,
		Transactions: [][]byte{[]byte("first"), []byte("second")},
	}

	var preimage []byte
	preimage = append(preimage, 0x01, 0x02, 0x03, 0x04)
	preimage = append(preimage, b.PreviousHash[:]...)
	preimage = append(preimage, make([]byte, 8)...)
	preimage = append(preimage, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88)
	preimage = append(preimage, "firstsecond"...)

	if want := Hash32(sha256.Sum256(preimage)); b.Hash() != want {
		t.Errorf("Hash() = %s, want %s", b.Hash(), want)
	}
}

func TestBlockHashCoversEveryField(t *testing.T) {
	base := &Block{
		Nonce:        7,
		PreviousHash: Hash32{0xaa},
		Timestamp:    99,
		Transactions: [][]byte{[]byte("tx")},
	}
	want := base.Hash()

	tests := []struct {
		name   string
		mutate func(b *Block)
	}{
		{"nonce", func(b *Block) { b.Nonce++ }},
		{"previous hash", func(b *Block) { b.PreviousHash[31] ^= 0x01 }},
		{"timestamp", func(b *Block) { b.Timestamp++ }},
		{"transaction byte", func(b *Block) { b.Transactions[0][0] ^= 0x01 }},
		{"extra transaction", func(b *Block) { b.Transactions = append(b.Transactions, []byte("more")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base.Clone()
			tt.mutate(b)
			if b.Hash() == want {
				t.Errorf("hash unchanged after mutating %s", tt.name)
			}
		})
	}
}

func TestIncrementNonceWraps(t *testing.T) {
	b := &Block{Nonce: math.MaxUint32}
	b.IncrementNonce()
	if b.Nonce != 0 {
		t.Errorf("nonce = %d, want 0", b.Nonce)
	}
}

func TestMeetsDifficulty(t *testing.T) {
	tests := []struct {
		name string
		hash Hash32
		d    int
		want bool
	}{
		{"zero difficulty", Hash32{0xff}, 0, true},
		{"one nibble ok", Hash32{0x0f}, 1, true},
		{"one nibble fail", Hash32{0x10}, 1, false},
		{"two nibbles ok", Hash32{0x00, 0xff}, 2, true},
		{"three nibbles ok", Hash32{0x00, 0x0f}, 3, true},
		{"three nibbles fail", Hash32{0x00, 0x10}, 3, false},
		{"four nibbles ok", Hash32{0x00, 0x00, 0xab}, 4, true},
		{"four nibbles fail on odd nibble", Hash32{0x00, 0x01}, 4, false},
		{"all zero full length", Hash32{}, 64, true},
		{"beyond hash length", Hash32{}, 65, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MeetsDifficulty(tt.hash, tt.d); got != tt.want {
				t.Errorf("MeetsDifficulty(%s, %d) = %v, want %v", tt.hash, tt.d, got, tt.want)
			}
		})
	}
}

func TestProofOfWork(t *testing.T) {
	b := NewBlock(0, GenesisHash)
	b.Transactions = append(b.Transactions, []byte("payload"))

	hash := ProofOfWork(b, 3)
	if hash != b.Hash() {
		t.Fatalf("returned hash %s differs from block hash %s", hash, b.Hash())
	}
	if hash.String()[:3] != "000" {
		t.Errorf("hash %s does not start with 000", hash)
	}
}

func TestGenesisBlockIsFixed(t *testing.T) {
	g := NewGenesisBlock()
	if g.Nonce != 0 || g.Timestamp != 0 || g.PreviousHash != (Hash32{}) || len(g.Transactions) != 0 {
		t.Fatalf("unexpected genesis block %+v", g)
	}
	if NewGenesisBlock().Hash() != GenesisHash {
		t.Error("genesis hash differs between constructions")
	}
}

func TestHash32Text(t *testing.T) {
	h := Hash32{0xde, 0xad, 0xbe, 0xef}
	text, err := h.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() failed: %v", err)
	}

	var parsed Hash32
	if err := parsed.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() failed: %v", err)
	}
	if parsed != h {
		t.Errorf("parsed %s, want %s", parsed, h)
	}

	if _, err := ParseHash32("abcd"); err == nil {
		t.Error("ParseHash32 accepted a short hash")
	}
	if _, err := ParseHash32("zz"); err == nil {
		t.Error("ParseHash32 accepted non-hex input")
	}
}
