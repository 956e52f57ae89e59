package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinSecretLen mirrors the config-level floor; the constructor enforces it
// again so the verifier can never be built around an unusable secret.
const MinSecretLen = 16

// DefaultFreshnessWindow bounds the replay window even for a valid-looking
// signature.
const DefaultFreshnessWindow = 300 * time.Second

// Distinct rejections: the caller maps each to its own 401 message so the CRM
// operator can tell a clock problem from a key problem.
var (
	ErrMissingSignature    = errors.New("signature header missing")
	ErrMissingTimestamp    = errors.New("timestamp header missing")
	ErrMalformedTimestamp  = errors.New("timestamp header is not a unix timestamp")
	ErrStaleTimestamp      = errors.New("timestamp outside freshness window")
	ErrSignatureMismatch   = errors.New("signature mismatch")
	errSecretTooShort      = errors.New("webhook secret too short")
	errNonPositiveWindow   = errors.New("freshness window must be positive")
)

// Verifier checks HMAC authenticity and freshness of a raw webhook body.
type Verifier struct {
	secret []byte
	window time.Duration
	now    func() time.Time
}

// NewVerifier builds a Verifier. An empty or short secret is a configuration
// fault; the service must refuse to serve rather than accept unsigned events.
func NewVerifier(secret string, window time.Duration) (*Verifier, error) {
	if len(strings.TrimSpace(secret)) < MinSecretLen {
		return nil, errSecretTooShort
	}
	if window <= 0 {
		return nil, errNonPositiveWindow
	}
	return &Verifier{
		secret: []byte(secret),
		window: window,
		now:    time.Now,
	}, nil
}

// Verify validates the signature and timestamp headers against the exact raw
// body bytes, before any JSON parsing. The canonical signing string is
// "{timestamp}.{rawBody}" and the signature is a lower-case hex HMAC-SHA256
// digest of it.
func (v *Verifier) Verify(rawBody []byte, signatureHeader, timestampHeader string) error {
	if strings.TrimSpace(signatureHeader) == "" {
		return ErrMissingSignature
	}
	if strings.TrimSpace(timestampHeader) == "" {
		return ErrMissingTimestamp
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(timestampHeader), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedTimestamp, timestampHeader)
	}

	age := v.now().Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	// Freshness is checked independently of signature validity.
	if age > v.window {
		return ErrStaleTimestamp
	}

	expected := v.Compute(rawBody, timestampHeader)
	provided := strings.ToLower(strings.TrimSpace(signatureHeader))
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Compute returns the expected lower-hex digest for the given body and
// timestamp. Exposed for senders in tests.
func (v *Verifier) Compute(rawBody []byte, timestampHeader string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strings.TrimSpace(timestampHeader)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// WithNow overrides the clock. Test hook.
func (v *Verifier) WithNow(now func() time.Time) *Verifier {
	v.now = now
	return v
}
