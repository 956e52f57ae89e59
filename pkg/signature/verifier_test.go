package signature

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func newTestVerifier(t *testing.T, at time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, DefaultFreshnessWindow)
	require.NoError(t, err)
	return v.WithNow(func() time.Time { return at })
}

func TestNewVerifierRejectsShortSecret(t *testing.T) {
	_, err := NewVerifier("short", DefaultFreshnessWindow)
	require.Error(t, err)

	_, err = NewVerifier(testSecret, 0)
	require.Error(t, err)
}

func TestVerifyValidSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)

	body := []byte(`{"event_type":"deal.won"}`)
	ts := fmt.Sprintf("%d", now.Unix())
	sig := v.Compute(body, ts)

	require.NoError(t, v.Verify(body, sig, ts))
}

func TestVerifyDistinctRejections(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)
	body := []byte(`{}`)
	ts := fmt.Sprintf("%d", now.Unix())

	assert.ErrorIs(t, v.Verify(body, "", ts), ErrMissingSignature)
	assert.ErrorIs(t, v.Verify(body, "deadbeef", ""), ErrMissingTimestamp)
	assert.ErrorIs(t, v.Verify(body, "deadbeef", "not-a-number"), ErrMalformedTimestamp)
	assert.ErrorIs(t, v.Verify(body, "deadbeef", ts), ErrSignatureMismatch)
}

func TestVerifyFreshnessBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)
	body := []byte(`{"event_type":"deal.won"}`)

	// 299 seconds old: accepted.
	fresh := fmt.Sprintf("%d", now.Add(-299*time.Second).Unix())
	require.NoError(t, v.Verify(body, v.Compute(body, fresh), fresh))

	// 301 seconds old: rejected even with a valid signature.
	stale := fmt.Sprintf("%d", now.Add(-301*time.Second).Unix())
	assert.ErrorIs(t, v.Verify(body, v.Compute(body, stale), stale), ErrStaleTimestamp)

	// future skew is bounded the same way
	future := fmt.Sprintf("%d", now.Add(301*time.Second).Unix())
	assert.ErrorIs(t, v.Verify(body, v.Compute(body, future), future), ErrStaleTimestamp)
}

func TestVerifyTamperedBody(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)
	ts := fmt.Sprintf("%d", now.Unix())

	sig := v.Compute([]byte(`{"qty":10}`), ts)
	assert.ErrorIs(t, v.Verify([]byte(`{"qty":99}`), sig, ts), ErrSignatureMismatch)
}

func TestVerifyAcceptsUppercaseHex(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, now)
	body := []byte(`{}`)
	ts := fmt.Sprintf("%d", now.Unix())

	sig := strings.ToUpper(v.Compute(body, ts))
	require.NoError(t, v.Verify(body, "  "+sig+"  ", ts))
}
