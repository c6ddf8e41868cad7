// Package draft computes and checks the day-scoped codes that unlock a
// page's unpublished content without a session.
package draft

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"
)

// dateLayout is the YYYYMMDD prefix hashed into every token.
const dateLayout = "20060102"

// Token returns hex(sha256(YYYYMMDD + secret + pageID)) for the calendar day
// of now, in now's location.
func Token(secret string, pageID int, now time.Time) string {
	sum := sha256.Sum256([]byte(now.Format(dateLayout) + secret + strconv.Itoa(pageID)))
	return hex.EncodeToString(sum[:])
}

// Verifier checks caller-supplied tokens against the configured secret.
// A zero Secret disables draft access entirely.
type Verifier struct {
	Secret string
	Now    func() time.Time
}

// NewVerifier returns a Verifier using the server's local wall clock.
func NewVerifier(secret string) *Verifier {
	return &Verifier{Secret: secret, Now: time.Now}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && v.Secret != ""
}

func (v *Verifier) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

// TokenFor returns today's token for pageID, or false when draft access is
// disabled.
func (v *Verifier) TokenFor(pageID int) (string, bool) {
	if !v.Enabled() {
		return "", false
	}
	return Token(v.Secret, pageID, v.now()), true
}

// Verify reports whether token grants draft access to pageID today.
// Tokens issued before local midnight stop verifying right after it.
func (v *Verifier) Verify(pageID int, token string) bool {
	if !v.Enabled() || token == "" || pageID <= 0 {
		return false
	}
	expected := Token(v.Secret, pageID, v.now())
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}
