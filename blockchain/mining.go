package blockchain

// MeetsDifficulty reports whether the hex rendering of hash starts with at
// least d '0' characters.
func MeetsDifficulty(hash Hash32, d int) bool {
	if d <= 0 {
		return true
	}
	if d > 2*len(hash) {
		return false
	}

	for i := 0; i < d; i++ {
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble != 0 {
			return false
		}
	}

	return true
}

// ProofOfWork increments the nonce from its current value until the block
// hash meets d, and returns that hash. It has no cancellation point.
func ProofOfWork(b *Block, d int) Hash32 {
	for hash := b.Hash(); ; hash = b.Hash() {
		if MeetsDifficulty(hash, d) {
			return hash
		}
		b.IncrementNonce()
	}
}
