package domain

// AttachmentKind identifies which subscription allowance an attachment consumes.
type AttachmentKind string

// Attachment kinds. Each kind has its own capacity accounting.
const (
	AttachmentPassenger AttachmentKind = "passenger"
	AttachmentRoute     AttachmentKind = "route"
)

// IsValid checks if the kind is a known value.
func (k AttachmentKind) IsValid() bool {
	return k == AttachmentPassenger || k == AttachmentRoute
}

// Attachment is a passenger or route linked (or about to be linked) to a subscription.
type Attachment struct {
	ID    string         `json:"id"`
	Label string         `json:"label,omitempty"`
	Kind  AttachmentKind `json:"kind"`
}

// LedgerView is a snapshot of one subscription's staging ledger.
type LedgerView struct {
	SubscriptionID string         `json:"subscriptionId"`
	Kind           AttachmentKind `json:"kind"`
	Committed      []Attachment   `json:"committed"`
	Pending        []Attachment   `json:"pending"`

	// Allowance is nil for unlimited subscriptions
	Allowance *int `json:"allowance,omitempty"`

	// Remaining is nil for unlimited subscriptions
	Remaining *int `json:"remaining,omitempty"`

	LastError string `json:"lastError,omitempty"`
}
