package pet

import (
	"math/rand/v2"
	"strings"
	"time"
)

// ConnectionCode grants a second user interaction rights on an owner's pet.
// Codes are short opaque tokens with a TTL; an hourly sweep removes expired
// ones.
type ConnectionCode struct {
	OwnerID   int64     `json:"owner_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeLength = 6

func newCode() string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}
