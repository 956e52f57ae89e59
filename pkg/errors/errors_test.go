package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, MetadataFor(CodeUnauthorized).HTTPStatus)
	assert.Equal(t, http.StatusConflict, MetadataFor(CodeIdempotency).HTTPStatus)
	assert.Equal(t, http.StatusMethodNotAllowed, MetadataFor(CodeMethod).HTTPStatus)

	// unknown codes degrade to internal
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("NOPE")).HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(CodeDependency, cause, "store write")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "store write", err.Message())
}

func TestAs(t *testing.T) {
	typed := New(CodeValidation, "bad input").WithDetails(map[string]string{"field": "seq"})
	wrapped := fmt.Errorf("outer: %w", typed)

	found := As(wrapped)
	require.NotNil(t, found)
	assert.Equal(t, CodeValidation, found.Code())
	assert.NotNil(t, found.Details())

	assert.Nil(t, As(errors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestDumpChain(t *testing.T) {
	inner := errors.New("db down")
	err := Wrap(CodeDependency, inner, "ledger lookup")

	dump := Dump(err)
	assert.Equal(t, CodeDependency, dump.Code)
	assert.Len(t, dump.Chain, 2)
	assert.Contains(t, dump.TopMessage, "ledger lookup")
}
