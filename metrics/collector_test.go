package metrics

import (
	"sync"
	"testing"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("sess-001", "/opt/engine/playback")

	c.IncEngineLaunchSuccess()
	c.IncProgressLineParsed()
	c.IncProgressLineParsed()
	c.IncProgressLineIgnored()
	c.IncTerminationIssued()
	c.AddFramesObserved(3)

	s := c.Snapshot()
	if s.EngineLaunchSuccess != 1 {
		t.Errorf("EngineLaunchSuccess = %d, want 1", s.EngineLaunchSuccess)
	}
	if s.ProgressLinesParsed != 2 {
		t.Errorf("ProgressLinesParsed = %d, want 2", s.ProgressLinesParsed)
	}
	if s.ProgressLinesIgnored != 1 {
		t.Errorf("ProgressLinesIgnored = %d, want 1", s.ProgressLinesIgnored)
	}
	if s.TerminationsIssued != 1 {
		t.Errorf("TerminationsIssued = %d, want 1", s.TerminationsIssued)
	}
	if s.FramesObserved != 3 {
		t.Errorf("FramesObserved = %d, want 3", s.FramesObserved)
	}
	if s.SessionID != "sess-001" {
		t.Errorf("SessionID = %q", s.SessionID)
	}
	if s.EnginePath != "/opt/engine/playback" {
		t.Errorf("EnginePath = %q", s.EnginePath)
	}
}

func TestCollector_NilReceiverSafe(t *testing.T) {
	var c *Collector

	c.IncDecodeError()
	c.IncEngineLaunchFailure()
	c.AddFramesObserved(10)

	s := c.Snapshot()
	if s.DecodeErrors != 0 || s.FramesObserved != 0 {
		t.Error("nil collector snapshot should be zero")
	}
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := NewCollector("sess-001", "engine")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncProgressLineParsed()
			c.AddFramesObserved(1)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.ProgressLinesParsed != 50 {
		t.Errorf("ProgressLinesParsed = %d, want 50", s.ProgressLinesParsed)
	}
	if s.FramesObserved != 50 {
		t.Errorf("FramesObserved = %d, want 50", s.FramesObserved)
	}
}
