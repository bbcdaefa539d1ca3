package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bulletin is the canonical record produced for every weather product
// received from the wire. It is immutable once constructed; ownership passes
// to whichever consumer receives it.
type Bulletin struct {
	Subject string `json:"subject,omitempty"`

	// Noaaport is the product text in NOAAPORT framing: a 0x01 start-of-text
	// byte, CR CR LF line endings, and a 0x03 end-of-text byte.
	Noaaport string `json:"noaaport"`

	ID        string    `json:"id"`
	IssueTime time.Time `json:"issue"`
	TTAAII    string    `json:"ttaaii,omitempty"`
	CCCC      string    `json:"cccc,omitempty"`
	AwipsID   string    `json:"awipsid,omitempty"`

	// DelaySeconds is the whole seconds between issue time and ingestion,
	// never negative.
	DelaySeconds int `json:"delay_seconds"`

	// DelayStamp is the broker's delayed-delivery stamp, when present.
	DelayStamp *time.Time `json:"delay_stamp,omitempty"`
}

// FromEnvelope builds a Bulletin from a parsed envelope. fallbackID is used
// when the envelope carries no product id; when both are empty a fresh UUID
// is synthesized so downstream keying always has a stable identifier.
func FromEnvelope(env *Envelope, fallbackID string) Bulletin {
	id := env.ID
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		id = uuid.NewString()
	}

	issue := ParseIssueTime(env.Issue)

	return Bulletin{
		Subject:      env.Subject,
		Noaaport:     ToNoaaport(env.Body),
		ID:           id,
		IssueTime:    issue,
		TTAAII:       env.TTAAII,
		CCCC:         env.CCCC,
		AwipsID:      env.AwipsID,
		DelaySeconds: DelaySeconds(issue),
		DelayStamp:   env.DelayStamp,
	}
}
