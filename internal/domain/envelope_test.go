package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEnvelope = `<message type="groupchat" from="nwws@conference.nwws-oi.weather.gov/nwws-oi">
  <subject>National Weather Service Alert</subject>
  <body>URGENT - WEATHER MESSAGE</body>
  <x xmlns="nwws-oi" ttaaii="WFUS51" cccc="KBOS" awipsid="SVRBOS" issue="2023-12-25T15:45:00Z" id="nws_product_56789">SEVERE THUNDERSTORM WARNING FOR...
MIDDLESEX COUNTY IN EASTERN MASSACHUSETTS...</x>
</message>`

func TestParseEnvelope_ExtractsProductFields(t *testing.T) {
	env, err := ParseEnvelope([]byte(sampleEnvelope))
	require.NoError(t, err)
	require.NotNil(t, env)

	want := &Envelope{
		TTAAII:  "WFUS51",
		CCCC:    "KBOS",
		AwipsID: "SVRBOS",
		ID:      "nws_product_56789",
		Issue:   "2023-12-25T15:45:00Z",
		Subject: "National Weather Service Alert",
		Body:    "SEVERE THUNDERSTORM WARNING FOR...\nMIDDLESEX COUNTY IN EASTERN MASSACHUSETTS...",
	}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEnvelope_MissingMarkerReturnsNil(t *testing.T) {
	raw := `<message type="groupchat"><body>room notice</body></message>`

	env, err := ParseEnvelope([]byte(raw))
	require.NoError(t, err)
	assert.Nil(t, env)
}

func TestParseEnvelope_WrongNamespaceReturnsNil(t *testing.T) {
	raw := `<message><x xmlns="jabber:x:data" ttaaii="WFUS51">ignored</x></message>`

	env, err := ParseEnvelope([]byte(raw))
	require.NoError(t, err)
	assert.Nil(t, env)
}

func TestParseEnvelope_MalformedXMLReturnsError(t *testing.T) {
	_, err := ParseEnvelope([]byte(`<message><x xmlns="nwws-oi"`))
	assert.Error(t, err)
}

func TestParseEnvelope_MissingAttributesDefaultEmpty(t *testing.T) {
	raw := `<message><x xmlns="nwws-oi">bare product text</x></message>`

	env, err := ParseEnvelope([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, env)

	assert.Empty(t, env.TTAAII)
	assert.Empty(t, env.CCCC)
	assert.Empty(t, env.AwipsID)
	assert.Empty(t, env.ID)
	assert.Empty(t, env.Issue)
	assert.Equal(t, "bare product text", env.Body)
}

func TestParseEnvelope_DelayStamp(t *testing.T) {
	raw := `<message>
  <x xmlns="nwws-oi" id="delayed_product_99999" issue="2023-12-25T15:30:00Z">delayed product</x>
  <delay xmlns="urn:xmpp:delay" stamp="2023-12-25T15:25:00Z"/>
</message>`

	env, err := ParseEnvelope([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, env)
	require.NotNil(t, env.DelayStamp)
	assert.Equal(t, time.Date(2023, 12, 25, 15, 25, 0, 0, time.UTC), *env.DelayStamp)
}

func TestParseIssueTime_ValidFormats(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"zulu", "2023-12-25T14:30:00Z", time.Date(2023, 12, 25, 14, 30, 0, 0, time.UTC)},
		{"explicit offset", "2023-12-25T14:30:00+00:00", time.Date(2023, 12, 25, 14, 30, 0, 0, time.UTC)},
		{"negative offset", "2023-12-25T09:30:00-05:00", time.Date(2023, 12, 25, 14, 30, 0, 0, time.UTC)},
		{"milliseconds", "2023-12-25T14:30:00.123Z", time.Date(2023, 12, 25, 14, 30, 0, 123000000, time.UTC)},
		{"microseconds", "2023-12-25T14:30:00.123456Z", time.Date(2023, 12, 25, 14, 30, 0, 123456000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIssueTime(tt.in)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseIssueTime_InvalidFallsBackToNow(t *testing.T) {
	now := time.Date(2023, 12, 25, 15, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })

	invalid := []string{
		"",
		"not-a-timestamp",
		"2023-13-45T25:70:99Z",
		"2023-12-25",
		"14:30:00Z",
		"2023/12/25 14:30:00",
		"2023-12-25T14:30:00",
	}

	for _, in := range invalid {
		assert.True(t, ParseIssueTime(in).Equal(now), "input %q should fall back to clock time", in)
	}
}

func TestFromEnvelope_SynthesizesIDWhenAbsent(t *testing.T) {
	env := &Envelope{Body: "text"}

	b := FromEnvelope(env, "")
	assert.NotEmpty(t, b.ID)

	b = FromEnvelope(env, "stanza_42")
	assert.Equal(t, "stanza_42", b.ID)

	env.ID = "nws_product_1"
	b = FromEnvelope(env, "stanza_42")
	assert.Equal(t, "nws_product_1", b.ID)
}

func TestFromEnvelope_BuildsCompleteBulletin(t *testing.T) {
	now := time.Date(2023, 12, 25, 15, 45, 30, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })

	env, err := ParseEnvelope([]byte(sampleEnvelope))
	require.NoError(t, err)
	require.NotNil(t, env)

	b := FromEnvelope(env, "")

	assert.Equal(t, "National Weather Service Alert", b.Subject)
	assert.Equal(t, "nws_product_56789", b.ID)
	assert.Equal(t, "WFUS51", b.TTAAII)
	assert.Equal(t, "KBOS", b.CCCC)
	assert.Equal(t, "SVRBOS", b.AwipsID)
	assert.Equal(t, time.Date(2023, 12, 25, 15, 45, 0, 0, time.UTC), b.IssueTime)
	assert.Equal(t, 30, b.DelaySeconds)
	assert.True(t, len(b.Noaaport) > 2)
	assert.Equal(t, byte(0x01), b.Noaaport[0])
	assert.Equal(t, byte(0x03), b.Noaaport[len(b.Noaaport)-1])
}
