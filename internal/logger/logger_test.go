package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	_ = SetFormat("console")
	_ = SetLevel("warn")
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false after SetVerbose(false)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	output := buf.String()
	if !strings.Contains(output, "DBG") {
		t.Errorf("expected debug level marker, got %q", output)
	}
	if !strings.Contains(output, "test message arg") {
		t.Errorf("unexpected output: %q", output)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Info("info message")

	if buf.Len() > 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestWarnAndError_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Warn("baseline missing for %s", "Formats")
	Error("audit failed")

	output := buf.String()
	if !strings.Contains(output, "WRN baseline missing for Formats") {
		t.Errorf("expected warning, got %q", output)
	}
	if !strings.Contains(output, "ERR audit failed") {
		t.Errorf("expected error, got %q", output)
	}
}

func TestSetLevel(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	if err := SetLevel("error"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Warn("hidden")
	if buf.Len() > 0 {
		t.Errorf("expected warnings to be suppressed, got %q", buf.String())
	}

	if err := SetLevel("info"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected info output, got %q", buf.String())
	}

	if err := SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetFormat_JSON(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	if err := SetFormat("json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	Warn("structured")

	output := buf.String()
	if !strings.Contains(output, `"level":"warn"`) || !strings.Contains(output, `"message":"structured"`) {
		t.Errorf("unexpected json output: %q", output)
	}

	if err := SetFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWith_AddsComponent(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	log := With("resolver")
	log.Debug().Str("schema", "AecUnits.01.00.03").Msg("located")

	output := buf.String()
	if !strings.Contains(output, "component=resolver") || !strings.Contains(output, "located") {
		t.Errorf("unexpected output: %q", output)
	}
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Section("Audit")
	if buf.Len() > 0 {
		t.Error("expected no section output when not verbose")
	}

	SetVerbose(true)
	Section("Audit")
	if !strings.Contains(buf.String(), "section=Audit") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
