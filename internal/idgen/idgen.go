// Package idgen generates stable, content-derived identifiers for
// work items, notes, dependencies, and role-transition rows.
//
// IDs are base36 (0-9, a-z) hashes of the entity's defining content plus
// a timestamp and a collision nonce, following the approach used
// throughout the beads family for human-typeable, information-dense ids.
package idgen

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// EncodeBase36 converts data to a base36 string of exactly length characters,
// left-padding with zeros or truncating to the least-significant digits.
func EncodeBase36(data []byte, length int) string {
	num := new(big.Int).SetBytes(data)
	base := big.NewInt(36)
	zero := big.NewInt(0)
	mod := new(big.Int)

	chars := make([]byte, 0, length)
	for num.Cmp(zero) > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}

	var b strings.Builder
	for i := len(chars) - 1; i >= 0; i-- {
		b.WriteByte(chars[i])
	}

	str := b.String()
	if len(str) < length {
		str = strings.Repeat("0", length-len(str)) + str
	}
	if len(str) > length {
		str = str[len(str)-length:]
	}
	return str
}

// New generates a prefixed content-hash id, e.g. "wi-4f2a9c1b".
// content should include whatever the caller considers distinguishing
// (title, parent, timestamp); nonce should be incremented by the caller
// on a uniqueness-constraint collision and the id regenerated.
func New(prefix, content string, now time.Time, nonce int) string {
	payload := fmt.Sprintf("%s|%d|%d", content, now.UnixNano(), nonce)
	hash := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%s-%s", prefix, EncodeBase36(hash[:6], 8))
}
