package redis

import "fmt"

// Key prefix for all ladder data
const keyPrefix = "chessladder"

// playersKey returns the HASH of player ID -> encoded player
func playersKey() string {
	return fmt.Sprintf("%s:players", keyPrefix)
}

// matchesKey returns the HASH of match ID -> encoded match
func matchesKey() string {
	return fmt.Sprintf("%s:matches", keyPrefix)
}

// matchSeqKey returns the counter holding the last assigned match sequence
func matchSeqKey() string {
	return fmt.Sprintf("%s:seq:match", keyPrefix)
}

// revisionKey returns the counter bumped by every committed transaction
func revisionKey() string {
	return fmt.Sprintf("%s:rev", keyPrefix)
}

// watchedKeys lists every key a transaction reads
func watchedKeys() []string {
	return []string{revisionKey(), playersKey(), matchesKey(), matchSeqKey()}
}
