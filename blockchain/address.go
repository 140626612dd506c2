package blockchain

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/decred/base58"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"
)

const (
	addressVersion  byte = 0x00
	pubKeyHashSize       = ripemd160.Size
	checksumSize         = 4
	addressByteSize      = 1 + pubKeyHashSize + checksumSize
)

var ErrInvalidAddress = errors.New("invalid address")

// DeriveAddress renders the address of a 64 byte X||Y public key:
// base58(version || ripemd160(sha256(key)) || checksum)
func DeriveAddress(publicKey []byte) string {
	digest := sha256.Sum256(publicKey)

	r := ripemd160.New()
	r.Write(digest[:])
	pkh := r.Sum(nil)

	payload := make([]byte, 0, addressByteSize)
	payload = append(payload, addressVersion)
	payload = append(payload, pkh...)
	payload = append(payload, addressChecksum(payload)...)

	return base58.Encode(payload)
}

// CheckAddress verifies the version byte and checksum of an address
func CheckAddress(address string) error {
	decoded := base58.Decode(address)
	if len(decoded) != addressByteSize {
		return fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, address, len(decoded))
	}
	if decoded[0] != addressVersion {
		return fmt.Errorf("%w: unknown version 0x%02x", ErrInvalidAddress, decoded[0])
	}
	body, sum := decoded[:addressByteSize-checksumSize], decoded[addressByteSize-checksumSize:]
	if !bytes.Equal(addressChecksum(body), sum) {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return nil
}

func addressChecksum(versioned []byte) []byte {
	inner := sha256.Sum256(versioned)
	outer := blake2b.Sum256(inner[:])
	return outer[len(outer)-checksumSize:]
}
