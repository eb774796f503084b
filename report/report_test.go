package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slipstream-io/framecap/replay"
	"github.com/slipstream-io/framecap/types"
)

func sampleReport() *Report {
	latest := int32(4212)
	return &Report{
		Version:    FormatVersion,
		SessionID:  "9f1c2a7e-0000-0000-0000-000000000000",
		ReplayPath: "/data/match.replay",
		Outcome: types.RecordingOutcome{
			Status:      types.OutcomeSuccess,
			LatestFrame: &latest,
			TargetFrame: 4212,
		},
		Summary: &replay.Summary{
			Layout:     replay.LayoutEnveloped,
			RawOffset:  15,
			EventCount: 9001,
		},
		ArchiveLocation:      "s3://recordings/9f1c2a7e.avi",
		DurationMillis:       72500,
		RecordedAt:           time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		FramesObserved:       4335,
		ProgressLinesIgnored: 12,
	}
}

func TestReport_RoundTrip(t *testing.T) {
	original := sampleReport()

	payload, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.SessionID != original.SessionID {
		t.Errorf("SessionID = %q, want %q", decoded.SessionID, original.SessionID)
	}
	if decoded.Outcome.Status != types.OutcomeSuccess {
		t.Errorf("Status = %q, want success", decoded.Outcome.Status)
	}
	if decoded.Outcome.LatestFrame == nil || *decoded.Outcome.LatestFrame != 4212 {
		t.Errorf("LatestFrame = %v, want 4212", decoded.Outcome.LatestFrame)
	}
	if decoded.Summary == nil || decoded.Summary.EventCount != 9001 {
		t.Errorf("Summary = %+v, want EventCount 9001", decoded.Summary)
	}
	if !decoded.RecordedAt.Equal(original.RecordedAt) {
		t.Errorf("RecordedAt = %v, want %v", decoded.RecordedAt, original.RecordedAt)
	}
}

func TestDecode_RejectsUnknownVersion(t *testing.T) {
	r := sampleReport()
	r.Version = FormatVersion + 1

	payload, err := Encode(r)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if _, err := Decode(payload); err == nil {
		t.Fatal("Decode accepted an unknown format version")
	} else if !strings.Contains(err.Error(), "unsupported report version") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecode_MalformedPayload(t *testing.T) {
	if _, err := Decode([]byte{0xc1, 0xff, 0x00}); err == nil {
		t.Fatal("Decode accepted malformed msgpack")
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.report")

	if err := WriteFile(path, sampleReport()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	decoded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if decoded.ArchiveLocation != "s3://recordings/9f1c2a7e.avi" {
		t.Errorf("ArchiveLocation = %q", decoded.ArchiveLocation)
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.report")); err == nil {
		t.Fatal("ReadFile succeeded for a missing file")
	}
}
