package domain

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Envelope holds the identification fields extracted from a raw group-channel
// message. Fields absent from the wire are empty strings.
type Envelope struct {
	TTAAII     string
	CCCC       string
	AwipsID    string
	ID         string
	Issue      string // raw issue attribute, parsed lazily by ParseIssueTime
	Subject    string
	Body       string
	DelayStamp *time.Time
}

// envelopeDoc mirrors the group-chat message stanza. Only the pieces the
// parser needs are mapped; everything else is ignored.
type envelopeDoc struct {
	XMLName xml.Name      `xml:"message"`
	Subject string        `xml:"subject"`
	X       *markerElem   `xml:"nwws-oi x"`
	Delay   *delayElement `xml:"urn:xmpp:delay delay"`
}

// markerElem is the <x xmlns="nwws-oi"> product marker.
type markerElem struct {
	TTAAII  string `xml:"ttaaii,attr"`
	CCCC    string `xml:"cccc,attr"`
	AwipsID string `xml:"awipsid,attr"`
	ID      string `xml:"id,attr"`
	Issue   string `xml:"issue,attr"`
	Body    string `xml:",chardata"`
}

type delayElement struct {
	Stamp string `xml:"stamp,attr"`
}

// ParseEnvelope extracts identification fields from a raw envelope.
//
// A nil Envelope with a nil error means the message carries no product
// marker element; presence updates and room notices share the channel with
// bulletins and are not an error. A non-nil error means the envelope could
// not be parsed at all.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var doc envelopeDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if doc.X == nil {
		return nil, nil
	}

	env := &Envelope{
		TTAAII:  doc.X.TTAAII,
		CCCC:    doc.X.CCCC,
		AwipsID: doc.X.AwipsID,
		ID:      doc.X.ID,
		Issue:   doc.X.Issue,
		Subject: doc.Subject,
		Body:    strings.Trim(doc.X.Body, "\n"),
	}

	if doc.Delay != nil {
		if stamp, err := time.Parse(time.RFC3339, doc.Delay.Stamp); err == nil {
			utc := stamp.UTC()
			env.DelayStamp = &utc
		}
	}

	return env, nil
}

// ParseIssueTime parses an ISO-8601 issue timestamp into a UTC instant.
// Fractional seconds and explicit offsets are accepted. Any string that does
// not parse (empty, malformed, out-of-range components) yields the current
// clock time instead of an error, so a bad stamp never drops a bulletin.
func ParseIssueTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
		return t.UTC()
	}
	return clock.Now().UTC()
}
