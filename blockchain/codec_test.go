package blockchain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func assertRawEqual(t *testing.T, got, want RawTransaction) {
	t.Helper()
	if !bytes.Equal(got.SenderAddress, want.SenderAddress) {
		t.Errorf("sender = %q, want %q", got.SenderAddress, want.SenderAddress)
	}
	if !bytes.Equal(got.RecipientAddress, want.RecipientAddress) {
		t.Errorf("recipient = %q, want %q", got.RecipientAddress, want.RecipientAddress)
	}
	if math.Float64bits(got.Value) != math.Float64bits(want.Value) {
		t.Errorf("value bits = %x, want %x", math.Float64bits(got.Value), math.Float64bits(want.Value))
	}
}

func TestCodecRoundTripExtremes(t *testing.T) {
	tests := []struct {
		name string
		raw  RawTransaction
	}{
		{"empty addresses", RawTransaction{SenderAddress: []byte{}, RecipientAddress: []byte{}, Value: 0}},
		{"negative zero", RawTransaction{SenderAddress: []byte("a"), RecipientAddress: []byte("b"), Value: math.Copysign(0, -1)}},
		{"max float", RawTransaction{SenderAddress: []byte("a"), RecipientAddress: []byte("b"), Value: math.MaxFloat64}},
		{"min negative float", RawTransaction{SenderAddress: []byte("a"), RecipientAddress: []byte("b"), Value: -math.MaxFloat64}},
		{"smallest subnormal", RawTransaction{SenderAddress: []byte("a"), RecipientAddress: []byte("b"), Value: math.SmallestNonzeroFloat64}},
		{"positive infinity", RawTransaction{SenderAddress: []byte("a"), RecipientAddress: []byte("b"), Value: math.Inf(1)}},
		{"negative infinity", RawTransaction{SenderAddress: []byte("a"), RecipientAddress: []byte("b"), Value: math.Inf(-1)}},
		{"nan payload", RawTransaction{SenderAddress: []byte("a"), RecipientAddress: []byte("b"), Value: math.Float64frombits(0x7ff8000000000001)}},
		{"binary addresses", RawTransaction{SenderAddress: []byte{0x00, 0xff, 0x00}, RecipientAddress: bytes.Repeat([]byte{0x80}, 300), Value: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeTransaction(EncodeTransaction(tt.raw))
			if err != nil {
				t.Fatalf("DecodeTransaction() failed: %v", err)
			}
			assertRawEqual(t, decoded, tt.raw)
		})
	}
}

func TestCodecRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	randomBytes := func() []byte {
		b := make([]byte, rng.IntN(64))
		for i := range b {
			b[i] = byte(rng.UintN(256))
		}
		return b
	}

	for i := 0; i < 500; i++ {
		raw := RawTransaction{
			SenderAddress:    randomBytes(),
			RecipientAddress: randomBytes(),
			Value:            math.Float64frombits(rng.Uint64()),
		}
		decoded, err := DecodeTransaction(EncodeTransaction(raw))
		if err != nil {
			t.Fatalf("iteration %d: DecodeTransaction() failed: %v", i, err)
		}
		assertRawEqual(t, decoded, raw)
	}
}

func TestEncodeLayout(t *testing.T) {
	raw := RawTransaction{SenderAddress: []byte("ab"), RecipientAddress: []byte("c"), Value: 2.5}
	got := EncodeTransaction(raw)

	var want []byte
	want = binary.BigEndian.AppendUint64(want, 2)
	want = append(want, 'a', 'b')
	want = binary.BigEndian.AppendUint64(want, 1)
	want = append(want, 'c')
	want = binary.BigEndian.AppendUint64(want, 8)
	want = binary.BigEndian.AppendUint64(want, math.Float64bits(2.5))

	if !bytes.Equal(got, want) {
		t.Errorf("encoded = %x, want %x", got, want)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	valid := EncodeTransaction(RawTransaction{SenderAddress: []byte("alice"), RecipientAddress: []byte("bob"), Value: 3})

	hugeLength := bytes.Clone(valid)
	binary.BigEndian.PutUint64(hugeLength[:8], math.MaxUint64)

	badValueLength := EncodeTransaction(RawTransaction{SenderAddress: []byte("a"), RecipientAddress: []byte("b")})
	binary.BigEndian.PutUint64(badValueLength[8+1+8+1:], 4)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short length prefix", valid[:5]},
		{"truncated sender", valid[:10]},
		{"truncated value", valid[:len(valid)-1]},
		{"length overflows buffer", hugeLength},
		{"value length not eight", badValueLength},
		{"trailing bytes", append(bytes.Clone(valid), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTransaction(tt.data)
			var corrupt *ErrCorruptEncoding
			if !errors.As(err, &corrupt) {
				t.Fatalf("DecodeTransaction() error = %v, want *ErrCorruptEncoding", err)
			}
		})
	}
}

func TestRawFromTransaction(t *testing.T) {
	tx := Transaction{Sender: "alice", Receiver: "bob", Amount: NewAmount(10), PublicKey: "ab", Signature: "cd"}
	raw := RawFromTransaction(tx)

	amount, err := raw.Amount()
	if err != nil {
		t.Fatalf("Amount() failed: %v", err)
	}
	if amount != tx.Amount {
		t.Errorf("amount = %s, want %s", amount, tx.Amount)
	}

	back, err := raw.Transaction()
	if err != nil {
		t.Fatalf("Transaction() failed: %v", err)
	}
	if back.Sender != "alice" || back.Receiver != "bob" || back.PublicKey != "" || back.Signature != "" {
		t.Errorf("unexpected transaction %+v", back)
	}
}
