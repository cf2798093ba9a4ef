package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("table", "fact_sales").Msg("loaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["table"] != "fact_sales" {
		t.Errorf("Expected table field, got %v", entry["table"])
	}
	if entry["level"] != "info" {
		t.Errorf("Expected level info, got %v", entry["level"])
	}
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message missing")
	}
}

func TestInitInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "loud", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Debug().Msg("debug")
	Info().Msg("info")

	out := buf.String()
	if strings.Contains(out, `"debug"`) && strings.Contains(out, `"message":"debug"`) {
		t.Error("debug should be filtered")
	}
	if !strings.Contains(out, `"message":"info"`) {
		t.Error("info message missing")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	l := With("loader")
	l.Info().Msg("x")

	if !strings.Contains(buf.String(), `"component":"loader"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}
