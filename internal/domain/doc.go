// Package domain models NOAA Weather Wire Service (NWWS-OI) bulletins.
//
// # Data Source
//
// Bulletins arrive over the NWWS-OI group channel operated by the National
// Weather Service. Each raw message wraps the product text in an envelope
// carrying a marker element in the "nwws-oi" namespace:
//
//	<message type="groupchat">
//	  <subject>National Weather Service Alert</subject>
//	  <x xmlns="nwws-oi" ttaaii="WFUS51" cccc="KBOS" awipsid="SVRBOS"
//	     issue="2023-12-25T15:45:00Z" id="nws_product_56789">
//	    SEVERE THUNDERSTORM WARNING FOR...
//	  </x>
//	</message>
//
// Messages without the marker element are administrative chatter (presence
// updates, room notices) and are not bulletins.
//
// # Product Identification
//
// ttaaii: WMO abbreviated heading, e.g. "WFUS51" (warnings, US, region 51).
// cccc:   issuing office ICAO identifier, e.g. "KBOS" (Boston WFO).
// awipsid: AWIPS product identifier, e.g. "SVRBOS" (severe thunderstorm
// warning, Boston). All three default to the empty string when the feed
// omits them; downstream filtering treats absence as "unclassified".
//
// # Issue Timestamps
//
// The "issue" attribute is ISO-8601 with optional fractional seconds (none,
// milliseconds, or microseconds) and either "Z" or an explicit offset.
// Anything else (empty, malformed, out-of-range components) falls back to
// the ingestion clock rather than failing the message. Delay is the whole
// number of seconds between issue time and ingestion, clamped to zero when
// the product is issue-stamped in the future.
//
// # NOAAPORT Framing
//
// The legacy NOAAPORT interchange format frames each product as
//
//	0x01 <body> 0x03
//
// with every line break encoded as the three-byte sequence CR CR LF. The
// conversion in [ToNoaaport] reproduces this byte-for-byte: consumers of the
// payload include legacy ingest systems that parse the control bytes
// directly.
package domain
