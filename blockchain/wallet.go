package blockchain

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Wallet is a secp256k1 keypair bound to an address. It is never persisted.
type Wallet struct {
	privateKey *secp256k1.PrivateKey
	publicKey  *secp256k1.PublicKey
	address    string
}

// WalletDetails is the presentation form of a wallet
type WalletDetails struct {
	PublicKey         string `json:"public_key"`
	PrivateKey        string `json:"private_key"`
	BlockchainAddress string `json:"blockchain_address"`
}

func errWrongLength(got, want int) error {
	return fmt.Errorf("got %d bytes, want %d", got, want)
}

// GenerateWallet creates a fresh keypair and derives its address
func GenerateWallet() (*Wallet, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	pub := priv.PubKey()
	return &Wallet{
		privateKey: priv,
		publicKey:  pub,
		address:    DeriveAddress(encodePublicKey(pub)),
	}, nil
}

// WalletFromMaterial rebuilds a wallet from hex key material and binds it to
// claimedAddress. An empty claimedAddress binds the derived address.
func WalletFromMaterial(publicHex, privateHex, claimedAddress string) (*Wallet, error) {
	privBytes, err := hex.DecodeString(privateHex)
	if err != nil {
		return nil, &ErrMalformedCredential{Field: "private_key", Err: err}
	}
	if len(privBytes) != privateKeySize {
		return nil, &ErrMalformedCredential{Field: "private_key", Err: errWrongLength(len(privBytes), privateKeySize)}
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(privBytes); overflow {
		return nil, &ErrMalformedCredential{Field: "private_key", Err: errors.New("scalar exceeds curve order")}
	}
	if scalar.IsZero() {
		return nil, &ErrMalformedCredential{Field: "private_key", Err: errors.New("zero scalar")}
	}
	priv := secp256k1.NewPrivateKey(&scalar)

	pub, err := parsePublicKeyHex(publicHex)
	if err != nil {
		return nil, &ErrMalformedCredential{Field: "public_key", Err: err}
	}
	if !pub.IsEqual(priv.PubKey()) {
		return nil, &ErrMalformedCredential{Field: "public_key", Err: errors.New("does not belong to private key")}
	}

	address := claimedAddress
	if address == "" {
		address = DeriveAddress(encodePublicKey(pub))
	}

	return &Wallet{
		privateKey: priv,
		publicKey:  pub,
		address:    address,
	}, nil
}

func (w *Wallet) Address() string {
	return w.address
}

func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(encodePublicKey(w.publicKey))
}

func (w *Wallet) PrivateKeyHex() string {
	return hex.EncodeToString(w.privateKey.Serialize())
}

func (w *Wallet) Details() WalletDetails {
	return WalletDetails{
		PublicKey:         w.PublicKeyHex(),
		PrivateKey:        w.PrivateKeyHex(),
		BlockchainAddress: w.address,
	}
}

// Sign builds a transfer from this wallet to receiver and signs it
func (w *Wallet) Sign(receiver string, amount Amount) (Transaction, error) {
	tx := Transaction{
		Sender:    w.address,
		Receiver:  receiver,
		Amount:    amount,
		PublicKey: w.PublicKeyHex(),
	}

	digest, err := signingDigest(tx)
	if err != nil {
		return Transaction{}, fmt.Errorf("canonical form: %w", err)
	}

	sig := ecdsa.Sign(w.privateKey, digest)
	tx.Signature = hex.EncodeToString(sig.Serialize())
	return tx, nil
}
