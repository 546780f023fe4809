package domain

// Recipient is one addressable target of a send. Duplicates are allowed and
// are delivered independently.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Preview is a rendered message body for one recipient, produced without
// sending anything.
type Preview struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	HTML  string `json:"html"`
}
