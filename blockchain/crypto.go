package blockchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

const (
	publicKeySize  = 64
	privateKeySize = 32
)

// SigningBytes is the canonical form a signature covers: the JSON encoding
// of the transaction with the signature blanked.
func SigningBytes(tx Transaction) ([]byte, error) {
	tx.Signature = ""
	return json.Marshal(tx)
}

func signingDigest(tx Transaction) ([]byte, error) {
	data, err := SigningBytes(tx)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(data)
	return digest[:], nil
}

// VerifyTransaction checks the signature against the declared public key.
// Any malformed field makes it return false.
func VerifyTransaction(tx Transaction) bool {
	pub, err := parsePublicKeyHex(tx.PublicKey)
	if err != nil {
		return false
	}

	sigBytes, err := hex.DecodeString(tx.Signature)
	if err != nil || len(sigBytes) == 0 {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}

	digest, err := signingDigest(tx)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pub)
}

// parsePublicKeyHex decodes 64 bytes of X||Y and checks the point is on the curve
func parsePublicKeyHex(s string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) != publicKeySize {
		return nil, errWrongLength(len(raw), publicKeySize)
	}
	return secp256k1.ParsePubKey(append([]byte{0x04}, raw...))
}

// encodePublicKey drops the 0x04 prefix of the uncompressed serialization
func encodePublicKey(pub *secp256k1.PublicKey) []byte {
	return pub.SerializeUncompressed()[1:]
}
