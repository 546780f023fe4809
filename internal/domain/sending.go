package domain

import "encoding/json"

// TransportType identifies the mail transport used for delivery.
type TransportType string

const (
	TransportSMTP   TransportType = "smtp"
	TransportSES    TransportType = "ses"
	TransportResend TransportType = "resend"
)

// DeliveryStatus is the outcome of a single delivery attempt.
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// SendRequest is one mail-merge batch as submitted by the caller.
type SendRequest struct {
	Subject      string      `json:"subject"`
	FromName     string      `json:"fromName,omitempty"`
	FromEmail    string      `json:"fromEmail"`
	HTMLTemplate string      `json:"htmlTemplate"`
	Recipients   []Recipient `json:"recipients"`
	TestMode     bool        `json:"testMode,omitempty"`
}

// Envelope is the fully-rendered message handed to a transport.
// By the time a message reaches this struct, personalization is complete.
type Envelope struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// DeliveryOutcome records one attempted recipient. MessageID is only
// meaningful when Status is StatusSent and may be empty if the transport did
// not assign one; Error is only set when Status is StatusFailed.
type DeliveryOutcome struct {
	To        string         `json:"to"`
	Status    DeliveryStatus `json:"status"`
	MessageID string         `json:"id,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// MarshalJSON emits "id" (null when absent) for sent outcomes and "error"
// for failed ones.
func (o DeliveryOutcome) MarshalJSON() ([]byte, error) {
	if o.Status == StatusFailed {
		return json.Marshal(struct {
			To     string         `json:"to"`
			Status DeliveryStatus `json:"status"`
			Error  string         `json:"error"`
		}{o.To, o.Status, o.Error})
	}

	var id *string
	if o.MessageID != "" {
		id = &o.MessageID
	}
	return json.Marshal(struct {
		To     string         `json:"to"`
		Status DeliveryStatus `json:"status"`
		ID     *string        `json:"id"`
	}{o.To, o.Status, id})
}

// SendReport is the ledger returned for a processed batch. Every count is
// derived from Results.
type SendReport struct {
	TotalRequested int               `json:"totalRequested"`
	TotalAttempted int               `json:"totalAttempted"`
	Sent           int               `json:"sent"`
	Failed         int               `json:"failed"`
	Results        []DeliveryOutcome `json:"results"`
}
