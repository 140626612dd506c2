package blockchain

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	lengthPrefixSize = 8
	valueSize        = 8
)

// RawTransaction is the settled form of a transfer stored inside a block
type RawTransaction struct {
	SenderAddress    []byte
	RecipientAddress []byte
	Value            float64
}

// RawFromTransaction keeps only the fields that are settled on chain
func RawFromTransaction(tx Transaction) RawTransaction {
	return RawTransaction{
		SenderAddress:    []byte(tx.Sender),
		RecipientAddress: []byte(tx.Receiver),
		Value:            tx.Amount.Float64(),
	}
}

// Amount converts the on-chain value back to minor units
func (r RawTransaction) Amount() (Amount, error) {
	return AmountFromFloat(r.Value)
}

// Transaction returns the wire form; key and signature are not recoverable
func (r RawTransaction) Transaction() (Transaction, error) {
	amount, err := r.Amount()
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Sender:   string(r.SenderAddress),
		Receiver: string(r.RecipientAddress),
		Amount:   amount,
	}, nil
}

// EncodeTransaction lays out
// len(sender) | sender | len(recipient) | recipient | 8 | value
// with every length and the value as 8 big-endian bytes.
func EncodeTransaction(r RawTransaction) []byte {
	size := 3*lengthPrefixSize + len(r.SenderAddress) + len(r.RecipientAddress) + valueSize
	buf := make([]byte, 0, size)

	buf = binary.BigEndian.AppendUint64(buf, uint64(len(r.SenderAddress)))
	buf = append(buf, r.SenderAddress...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(r.RecipientAddress)))
	buf = append(buf, r.RecipientAddress...)
	buf = binary.BigEndian.AppendUint64(buf, valueSize)
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(r.Value))

	return buf
}

// DecodeTransaction is the inverse of EncodeTransaction. It never reads out
// of bounds and rejects trailing bytes.
func DecodeTransaction(data []byte) (RawTransaction, error) {
	var r RawTransaction
	pos := 0

	sender, next, err := readField(data, pos, "sender address")
	if err != nil {
		return r, err
	}
	pos = next

	recipient, next, err := readField(data, pos, "recipient address")
	if err != nil {
		return r, err
	}
	pos = next

	value, next, err := readField(data, pos, "value")
	if err != nil {
		return r, err
	}
	if len(value) != valueSize {
		return r, &ErrCorruptEncoding{Offset: pos, Reason: fmt.Sprintf("value length %d, want %d", len(value), valueSize)}
	}
	pos = next

	if pos != len(data) {
		return r, &ErrCorruptEncoding{Offset: pos, Reason: fmt.Sprintf("%d trailing bytes", len(data)-pos)}
	}

	r.SenderAddress = sender
	r.RecipientAddress = recipient
	r.Value = math.Float64frombits(binary.BigEndian.Uint64(value))
	return r, nil
}

// readField reads one length-prefixed field starting at pos and returns a copy of it
func readField(data []byte, pos int, name string) ([]byte, int, error) {
	if len(data)-pos < lengthPrefixSize {
		return nil, pos, &ErrCorruptEncoding{Offset: pos, Reason: "truncated " + name + " length"}
	}
	n := binary.BigEndian.Uint64(data[pos : pos+lengthPrefixSize])
	pos += lengthPrefixSize

	if n > uint64(len(data)-pos) {
		return nil, pos, &ErrCorruptEncoding{Offset: pos, Reason: fmt.Sprintf("%s length %d exceeds remaining %d bytes", name, n, len(data)-pos)}
	}
	field := make([]byte, n)
	copy(field, data[pos:pos+int(n)])
	return field, pos + int(n), nil
}
