package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/veltex/warehouse-backend/pkg/errors"
)

type samplePayload struct {
	DealID string `json:"crm_deal_id" validate:"required"`
	Qty    int    `json:"qty" validate:"min=1"`
}

func TestDecodeJSONBytes(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBytes([]byte(`{"crm_deal_id":"deal-1","qty":3}`), &dest)
	require.NoError(t, err)
	assert.Equal(t, "deal-1", dest.DealID)
}

func TestDecodeJSONBytesMalformed(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBytes([]byte(`{"crm_deal_id":`), &dest)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDecodeJSONBytesValidation(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBytes([]byte(`{"qty":0}`), &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["crm_deal_id"])
	assert.Equal(t, "must be at least 1", details["qty"])
}
