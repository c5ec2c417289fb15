package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// hashKey generates a key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Namespace derives a store namespace from everything that determines a
// problem's scores, typically the variable names and the scorer's identity
// and parameters. Two problems share entries only if their parts are equal.
func Namespace(parts ...any) string {
	return hashKey("problem", parts...)
}

const (
	keyTypeScore = "score"
	keyTypeTest  = "test"
)

// Key identifies one evaluation: the local score of Target given Set, or the
// independence of Target and Other given Set. Set is the canonical encoding
// of the conditioning set, so set-equal inputs produce equal keys no matter
// the order they were discovered in. Key is comparable and usable as a map
// key.
type Key struct {
	Target int
	Other  int // -1 for score keys
	Set    string
}

// ScoreKey returns the key for the local score of v given parents.
func ScoreKey(v int, parents []int) Key {
	return Key{Target: v, Other: -1, Set: canonical(parents)}
}

// TestKey returns the key for the independence of x and y given z.
// Independence is symmetric, so TestKey(x, y, z) == TestKey(y, x, z).
func TestKey(x, y int, z []int) Key {
	return Key{Target: min(x, y), Other: max(x, y), Set: canonical(z)}
}

// Type returns "score" or "test".
func (k Key) Type() string {
	if k.Other < 0 {
		return keyTypeScore
	}
	return keyTypeTest
}

// String renders the key, e.g. "score:3|0,1" or "test:0,2|1".
func (k Key) String() string {
	if k.Other < 0 {
		return keyTypeScore + ":" + strconv.Itoa(k.Target) + "|" + k.Set
	}
	return keyTypeTest + ":" + strconv.Itoa(k.Target) + "," + strconv.Itoa(k.Other) + "|" + k.Set
}

// canonical encodes a set of indices as a sorted, comma-separated string.
func canonical(set []int) string {
	if len(set) == 0 {
		return ""
	}
	sorted := slices.Clone(set)
	slices.Sort(sorted)
	var b strings.Builder
	for i, v := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// Keyer maps evaluation keys to second-level store keys inside a namespace.
type Keyer struct {
	namespace string
}

// NewKeyer creates a keyer for namespace (see [Namespace]).
func NewKeyer(namespace string) Keyer {
	return Keyer{namespace: namespace}
}

// StoreKey returns the store key for k.
func (k Keyer) StoreKey(key Key) string {
	return k.namespace + ":" + key.String()
}
