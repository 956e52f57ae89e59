package enums

import "fmt"

// ViolationType categorizes contract violations recorded by the gateway.
type ViolationType string

const (
	ViolationSequenceOutOfOrder ViolationType = "sequence_out_of_order"
	ViolationSchema             ViolationType = "schema_violation"
	ViolationPayloadHashDrift   ViolationType = "payload_hash_drift"
)

var validViolationTypes = []ViolationType{
	ViolationSequenceOutOfOrder,
	ViolationSchema,
	ViolationPayloadHashDrift,
}

// IsValid reports whether the value matches the canonical violation enum.
func (v ViolationType) IsValid() bool {
	for _, candidate := range validViolationTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseViolationType converts the raw string to ViolationType.
func ParseViolationType(value string) (ViolationType, error) {
	for _, candidate := range validViolationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid violation type %q", value)
}
