package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_JSONIncludesService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: DEBUG, Format: JSON, Output: &buf, Service: "orchestrator"})

	log.Info("lease acquired", "session_id", "s1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	if entry[SERVICE] != "orchestrator" {
		t.Errorf("service = %v, want orchestrator", entry[SERVICE])
	}
	if entry["session_id"] != "s1" {
		t.Errorf("session_id = %v, want s1", entry["session_id"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WARN, Format: JSON, Output: &buf})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}

	log.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn should be written at warn level")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: JSON, Output: &buf}).With("component", "sweeper")

	log.Info("tick")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line: %v", err)
	}
	if entry["component"] != "sweeper" {
		t.Errorf("component = %v, want sweeper", entry["component"])
	}
}

func TestNew_RedactsSensitiveAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: JSON, Output: &buf})

	log.Info("pin rejected", "PIN", "1234", "card_id", "card-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	if entry["PIN"] != redacted {
		t.Errorf("PIN = %v, want %s", entry["PIN"], redacted)
	}
	if entry["card_id"] != "card-1" {
		t.Errorf("card_id = %v, want card-1", entry["card_id"])
	}
}
