package replay

import "fmt"

// Layout identifies which of the two legal file layouts a buffer uses.
type Layout string

const (
	// LayoutLegacy is a raw event stream with no envelope and a fixed
	// size table.
	LayoutLegacy Layout = "legacy"
	// LayoutEnveloped is the current layout: a 15-byte text envelope,
	// then a stream opened by a message-sizes event.
	LayoutEnveloped Layout = "enveloped"
)

// Summary is the structural summary of one replay buffer.
type Summary struct {
	// Layout is the detected file layout.
	Layout Layout `json:"layout" yaml:"layout"`
	// RawOffset is where the event stream begins.
	RawOffset int `json:"rawOffset" yaml:"rawOffset"`
	// DataStart is where the walk began (past the message-sizes event
	// for the enveloped layout).
	DataStart int `json:"dataStart" yaml:"dataStart"`
	// TerminalOffset is where the walk ended.
	TerminalOffset int `json:"terminalOffset" yaml:"terminalOffset"`
	// EventCount is the total number of records walked, excluding the
	// message-sizes event itself.
	EventCount int `json:"eventCount" yaml:"eventCount"`
	// TableEntries is the number of entries in the size table.
	TableEntries int `json:"tableEntries" yaml:"tableEntries"`
	// Counts holds per-code record counts for the known codes.
	Counts EventCounts `json:"counts" yaml:"counts"`
}

// EventCounts holds per-code record counts for structural bookkeeping.
type EventCounts struct {
	GameStart    int `json:"gameStart" yaml:"gameStart"`
	PreFrame     int `json:"preFrame" yaml:"preFrame"`
	PostFrame    int `json:"postFrame" yaml:"postFrame"`
	GameEnd      int `json:"gameEnd" yaml:"gameEnd"`
	ItemUpdate   int `json:"itemUpdate" yaml:"itemUpdate"`
	FrameBookend int `json:"frameBookend" yaml:"frameBookend"`
	Unrecognized int `json:"unrecognized" yaml:"unrecognized"`
}

// Summarize validates a replay buffer end to end and reports its
// structural shape. This is the composition of LocateRawData,
// BuildSizeTable, and a counting walk; it drives the probe command and
// the pre-spawn validation of the record pipeline.
func Summarize(buf []byte) (*Summary, error) {
	rawOffset, err := LocateRawData(buf)
	if err != nil {
		return nil, err
	}

	table, dataStart, err := BuildSizeTable(buf, rawOffset)
	if err != nil {
		return nil, err
	}

	layout := LayoutEnveloped
	if rawOffset == 0 {
		layout = LayoutLegacy
	}

	s := &Summary{
		Layout:       layout,
		RawOffset:    rawOffset,
		DataStart:    dataStart,
		TableEntries: len(table),
	}

	cursor := dataStart
	for cursor < len(buf) {
		code := buf[cursor]
		size, ok := table[code]
		if !ok {
			return nil, &StreamError{
				Kind: StreamErrorMissingEntry,
				Msg:  fmt.Sprintf("no size table entry for event code 0x%02x at offset %d", code, cursor),
			}
		}

		s.EventCount++
		switch code {
		case EventGameStart:
			s.Counts.GameStart++
		case EventPreFrame:
			s.Counts.PreFrame++
		case EventPostFrame:
			s.Counts.PostFrame++
		case EventGameEnd:
			s.Counts.GameEnd++
		case EventItemUpdate:
			s.Counts.ItemUpdate++
		case EventFrameBookend:
			s.Counts.FrameBookend++
		default:
			// Tolerated: present in the table but not structurally known.
			s.Counts.Unrecognized++
		}

		cursor += 1 + int(size)
	}

	s.TerminalOffset = cursor
	return s, nil
}
