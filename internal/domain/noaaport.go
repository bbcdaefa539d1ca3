package domain

import (
	"strings"
	"time"
)

// NOAAPORT control bytes framing every product payload.
const (
	startOfText = "\x01"
	endOfText   = "\x03"

	// lineEnding is the legacy NOAAPORT line break: CR CR LF.
	lineEnding = "\r\r\n"
)

// ToNoaaport converts raw product text into NOAAPORT framing: a single
// start-of-text byte, CR CR LF line endings, and a single end-of-text byte.
// A line feed already preceded by CR CR is left untouched, so feeding
// pre-normalized text through again does not duplicate bytes. Empty input
// maps to just the two control bytes.
func ToNoaaport(text string) string {
	if text == "" {
		return startOfText + endOfText
	}

	var b strings.Builder
	b.Grow(len(text) + len(text)/8 + 2)
	b.WriteString(startOfText)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' && !(i >= 2 && text[i-1] == '\r' && text[i-2] == '\r') {
			b.WriteString(lineEnding)
			continue
		}
		b.WriteByte(c)
	}
	b.WriteString(endOfText)
	return b.String()
}

// DelaySeconds reports the whole seconds elapsed between the issue time and
// now. Future issue times yield exactly zero, never a negative value.
func DelaySeconds(issue time.Time) int {
	d := clock.Now().UTC().Sub(issue)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
