package blockchain

import "fmt"

// ValidateChain checks a candidate block sequence: it must be non-empty,
// every block after the first must link to the hash of its predecessor and
// meet difficulty d. The first block is exempt from the work check.
func ValidateChain(blocks []*Block, d int) error {
	if len(blocks) == 0 {
		return &ErrInvalidChain{Index: 0, Reason: "empty chain"}
	}
	if blocks[0] == nil {
		return &ErrInvalidChain{Index: 0, Reason: "missing block"}
	}

	prevHash := blocks[0].Hash()
	for i := 1; i < len(blocks); i++ {
		block := blocks[i]
		if block == nil {
			return &ErrInvalidChain{Index: i, Reason: "missing block"}
		}

		if block.PreviousHash != prevHash {
			return &ErrInvalidChain{
				Index:  i,
				Reason: fmt.Sprintf("previous hash %s does not match %s", block.PreviousHash, prevHash),
			}
		}

		hash := block.Hash()
		if !MeetsDifficulty(hash, d) {
			return &ErrInvalidChain{
				Index:  i,
				Reason: fmt.Sprintf("hash %s does not meet difficulty %d", hash, d),
			}
		}
		prevHash = hash
	}

	return nil
}

// ChainIsValid is ValidateChain without the reason
func ChainIsValid(blocks []*Block, d int) bool {
	return ValidateChain(blocks, d) == nil
}
