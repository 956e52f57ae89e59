package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the acknowledgement shape the CRM expects from the ingestion
// endpoint. It is fixed by the external contract and deliberately not wrapped
// in the API envelope.
type WebhookAck struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Ignored bool   `json:"ignored,omitempty"`
	Replay  bool   `json:"replay,omitempty"`
	Ref     string `json:"ref,omitempty"`
}
