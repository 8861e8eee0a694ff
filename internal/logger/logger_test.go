package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestVerboseToggle(t *testing.T) {
	defer SetVerbose(false)
	defer SetOutput(os.Stderr)

	var buf bytes.Buffer
	SetOutput(&buf)

	SetVerbose(false)
	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	if buf.Len() != 0 {
		t.Errorf("expected no output with verbose off, got %q", buf.String())
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("IsVerbose should report true")
	}
	Debug("shown %d", 3)
	Section("Refresh")
	out := buf.String()
	if !strings.Contains(out, "[DEBUG] shown 3") {
		t.Errorf("missing debug line in %q", out)
	}
	if !strings.Contains(out, "=== Refresh ===") {
		t.Errorf("missing section header in %q", out)
	}
}

func TestWarnAlwaysPrints(t *testing.T) {
	defer SetOutput(os.Stderr)

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("skipped %s", "broken.pdf")
	if !strings.Contains(buf.String(), "[WARN] skipped broken.pdf") {
		t.Errorf("warning should print with verbose off, got %q", buf.String())
	}
}
