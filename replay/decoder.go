// Package replay implements structural decoding of replay event streams.
//
// A replay file is a sequence of binary records, each a one-byte event
// code followed by a fixed-per-code payload. The payload length table is
// not known up front: current files carry a message-sizes event as the
// first record of the stream, which defines the length of every other
// code; legacy files have no such record and use a fixed table.
//
// This package walks the stream for well-formedness only. It does not
// interpret payload contents.
package replay

import "fmt"

// Event codes for the records this decoder recognizes structurally.
const (
	// EventMessageSizes is the bootstrap event whose payload defines
	// the length of every other event code in the stream.
	EventMessageSizes byte = 0x35
	// EventGameStart opens a match.
	EventGameStart byte = 0x36
	// EventPreFrame carries per-player state before a frame simulates.
	EventPreFrame byte = 0x37
	// EventPostFrame carries per-player state after a frame simulates.
	EventPostFrame byte = 0x38
	// EventGameEnd closes a match.
	EventGameEnd byte = 0x39
	// EventItemUpdate carries per-item state for a frame.
	EventItemUpdate byte = 0x3B
	// EventFrameBookend marks a frame as fully written.
	EventFrameBookend byte = 0x3C
)

// envelopedRawOffset is where event data begins in an enveloped file:
// a fixed 15-byte text envelope precedes the binary stream.
const envelopedRawOffset = 15

// envelopeLeadByte is the first byte of an enveloped file.
const envelopeLeadByte = '{'

// SizeTable maps an event code to its payload byte length, excluding
// the one-byte code itself. Built once per buffer, immutable after.
type SizeTable map[byte]uint16

// Legacy payload lengths for files predating the message-sizes event.
// Only these four codes are legal under the legacy layout; item-update
// and frame-bookend records never appear in it.
const (
	legacyGameStartLen uint16 = 352
	legacyPreFrameLen  uint16 = 58
	legacyPostFrameLen uint16 = 33
	legacyGameEndLen   uint16 = 1
)

// legacySizeTable returns the fixed table for the legacy layout.
func legacySizeTable() SizeTable {
	return SizeTable{
		EventGameStart: legacyGameStartLen,
		EventPreFrame:  legacyPreFrameLen,
		EventPostFrame: legacyPostFrameLen,
		EventGameEnd:   legacyGameEndLen,
	}
}

// LocateRawData returns the byte offset where the event stream begins.
//
// Two layouts are legal: a raw stream whose first byte is the
// game-start code (offset 0, legacy) and an enveloped file whose first
// byte is '{' (offset 15, current). Any other leading byte is an
// unrecognized-format error.
func LocateRawData(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, &StreamError{
			Kind: StreamErrorTruncated,
			Msg:  "empty replay buffer",
		}
	}

	switch buf[0] {
	case EventGameStart:
		return 0, nil
	case envelopeLeadByte:
		if len(buf) <= envelopedRawOffset {
			return 0, &StreamError{
				Kind: StreamErrorTruncated,
				Msg:  fmt.Sprintf("enveloped file ends inside the %d-byte envelope", envelopedRawOffset),
			}
		}
		return envelopedRawOffset, nil
	default:
		return 0, &StreamError{
			Kind: StreamErrorFormat,
			Msg:  fmt.Sprintf("unrecognized leading byte 0x%02x", buf[0]),
		}
	}
}

// BuildSizeTable constructs the event size table for the stream
// beginning at offset, returning the table and the offset where the
// walk should start (past the consumed message-sizes event for the
// current layout, offset itself for the legacy layout).
//
// When the current layout does not open with the message-sizes event,
// the returned table is empty; the condition surfaces as a
// missing-entry error on the first walk lookup, not here.
func BuildSizeTable(buf []byte, offset int) (SizeTable, int, error) {
	if offset == 0 {
		return legacySizeTable(), 0, nil
	}

	if offset >= len(buf) || buf[offset] != EventMessageSizes {
		return SizeTable{}, offset, nil
	}

	if offset+1 >= len(buf) {
		return nil, 0, &StreamError{
			Kind: StreamErrorTruncated,
			Msg:  "message-sizes event has no length byte",
		}
	}
	payloadLen := uint16(buf[offset+1])

	// The payload is the length byte plus (payloadLen-1)/3 triples of
	// (event code, length high, length low).
	end := offset + 1 + int(payloadLen)
	if end > len(buf) {
		return nil, 0, &StreamError{
			Kind: StreamErrorTruncated,
			Msg:  fmt.Sprintf("message-sizes payload of %d bytes runs past the buffer", payloadLen),
		}
	}

	table := SizeTable{EventMessageSizes: payloadLen}
	for cur := offset + 2; cur+3 <= end; cur += 3 {
		code := buf[cur]
		table[code] = uint16(buf[cur+1])<<8 | uint16(buf[cur+2])
	}

	return table, end, nil
}

// Walk advances an event cursor through the stream from start until it
// reaches or passes the end of the buffer, returning the terminal
// offset. Every code encountered must have a table entry; a miss is a
// hard malformed-stream error, never a silent skip.
func Walk(buf []byte, start int, table SizeTable) (int, error) {
	cursor := start
	for cursor < len(buf) {
		code := buf[cursor]
		size, ok := table[code]
		if !ok {
			return cursor, &StreamError{
				Kind: StreamErrorMissingEntry,
				Msg:  fmt.Sprintf("no size table entry for event code 0x%02x at offset %d", code, cursor),
			}
		}
		cursor += 1 + int(size)
	}
	return cursor, nil
}
