// Package rank computes lexicographic position keys for ordering tasks
// within a project. Keys are base-36 strings compared bytewise; inserting
// between two keys touches no sibling rows. When a gap is exhausted the
// caller rewrites the project's keys with Spread and retries.
package rank

import (
	"errors"
	"strings"
)

// Digits is the key alphabet, in order.
const Digits = "0123456789abcdefghijklmnopqrstuvwxyz"

// Base is the size of the key alphabet.
const Base = len(Digits)

// MaxKeyLen caps generated key length. A key that would grow past this is
// treated as key-space exhaustion so the caller rebalances instead of
// accumulating unbounded key growth in one gap.
const MaxKeyLen = 64

var (
	// ErrInvalidRange is returned when before >= after.
	ErrInvalidRange = errors.New("rank: before must sort strictly below after")
	// ErrExhausted is returned when no key exists strictly between the
	// bounds, or the result would exceed MaxKeyLen. The caller should
	// rebalance and recompute.
	ErrExhausted = errors.New("rank: key space exhausted between bounds")
)

// digitAt treats a key as a fraction: digits beyond its length are the
// minimal digit.
func digitAt(key string, i int) int {
	if i >= len(key) {
		return 0
	}
	return strings.IndexByte(Digits, key[i])
}

// Between returns a key k with before < k < after under bytewise comparison.
// An empty before means the head of the sequence, an empty after the tail;
// Between("", "") seeds the first key at the midpoint of the space.
// Generated keys never end in the minimal digit, so appending after a
// generated key always succeeds.
func Between(before, after string) (string, error) {
	if before != "" && after != "" && before >= after {
		return "", ErrInvalidRange
	}

	key := make([]byte, 0, len(before)+1)
	i := 0
	for {
		b := digitAt(before, i)
		a := Base
		if i < len(after) {
			a = strings.IndexByte(Digits, after[i])
		} else if after != "" {
			// after is a prefix of the path walked so far; every key with
			// this prefix sorts at or above it, so the gap is empty.
			return "", ErrExhausted
		}

		if b == a {
			key = append(key, Digits[b])
			i++
			continue
		}

		if mid := (b + a) / 2; mid > b {
			key = append(key, Digits[mid])
			break
		}

		// Adjacent digits: keep the lower bound's digit, after which only
		// before still constrains the remaining digits.
		key = append(key, Digits[b])
		i++
		for {
			b = digitAt(before, i)
			if mid := (b + Base) / 2; mid > b {
				key = append(key, Digits[mid])
				break
			}
			key = append(key, Digits[b])
			i++
		}
		break
	}

	if len(key) > MaxKeyLen {
		return "", ErrExhausted
	}
	return string(key), nil
}

// Spread returns n evenly spaced keys of equal length in ascending order,
// used to rewrite a project's positions during a rebalance.
func Spread(n int) []string {
	if n <= 0 {
		return nil
	}

	// Shortest length whose key space leaves at least a full digit of gap
	// between neighbors.
	length := 1
	capacity := uint64(Base)
	for capacity < uint64(n+1)*uint64(Base) && length < 12 {
		length++
		capacity *= uint64(Base)
	}

	step := capacity / uint64(n+1)
	keys := make([]string, n)
	for i := range keys {
		value := uint64(i+1) * step
		if value%uint64(Base) == 0 {
			// Nudge off the minimal trailing digit; the gap to the next
			// key is at least a full digit so order is preserved.
			value += uint64(Base) / 2
		}
		keys[i] = encode(value, length)
	}
	return keys
}

func encode(value uint64, length int) string {
	buf := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		buf[i] = Digits[value%uint64(Base)]
		value /= uint64(Base)
	}
	return string(buf)
}
