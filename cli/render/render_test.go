package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/slipstream-io/framecap/replay"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"table", FormatTable, false},
		{"yaml", FormatYAML, false},
		{"JSON", FormatJSON, false},
		{"", "", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) accepted an invalid format", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func sampleSummary() *replay.Summary {
	return &replay.Summary{
		Layout:         replay.LayoutEnveloped,
		RawOffset:      15,
		DataStart:      35,
		TerminalOffset: 90210,
		EventCount:     9001,
		TableEntries:   7,
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, &buf)

	if err := r.Render(sampleSummary()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var decoded replay.Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.EventCount != 9001 {
		t.Errorf("eventCount = %d, want 9001", decoded.EventCount)
	}
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatYAML, &buf)

	if err := r.Render(sampleSummary()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "layout: enveloped") {
		t.Errorf("yaml output missing layout line:\n%s", out)
	}
	if !strings.Contains(out, "eventCount: 9001") {
		t.Errorf("yaml output missing eventCount line:\n%s", out)
	}
}

func TestRender_TableStruct(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	if err := r.Render(sampleSummary()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "layout:") {
		t.Errorf("table output missing layout row:\n%s", out)
	}
	if !strings.Contains(out, "enveloped") {
		t.Errorf("table output missing layout value:\n%s", out)
	}
}

func TestRender_TableSlice(t *testing.T) {
	type row struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	rows := []row{{"preFrame", 4}, {"postFrame", 4}}
	if err := r.Render(rows); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "name") || !strings.Contains(out, "count") {
		t.Errorf("table output missing headers:\n%s", out)
	}
	if !strings.Contains(out, "preFrame") {
		t.Errorf("table output missing row data:\n%s", out)
	}
}

func TestRender_TableEmptySlice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	if err := r.Render([]replay.Summary{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("empty slice output = %q", buf.String())
	}
}
