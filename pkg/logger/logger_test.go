package logger

import "testing"

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := NewLogger("verbose")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.logger.Desugar().Core().Enabled(-1) {
		t.Error("debug should be disabled at info level")
	}
}

func TestNop_With(t *testing.T) {
	l := NewNop().With("booking_id", 1)
	l.Info("ignored", "k", "v")
}
