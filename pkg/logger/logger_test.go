package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolve.log")
	if err := Init(path); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Info("window %s found", "Main")
	Warn("frame %d unreachable", 2)
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "[INFO] window Main found") {
		t.Errorf("missing info line in %q", out)
	}
	if !strings.Contains(out, "[WARN] frame 2 unreachable") {
		t.Errorf("missing warn line in %q", out)
	}
}

func TestDebugRequiresVerbose(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	defer Close()

	SetVerbose(false)
	Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug output written while not verbose")
	}

	SetVerbose(true)
	defer SetVerbose(false)
	Debug("shown")
	if !strings.Contains(buf.String(), "[DEBUG] shown") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}

func TestEscalate(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	defer Close()
	SetVerbose(true)
	defer SetVerbose(false)

	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{1 * time.Second, "[DEBUG]"},
		{6 * time.Second, "[INFO]"},
		{9 * time.Second, "[WARN]"},
	}
	for _, tt := range tests {
		buf.Reset()
		Escalate(tt.elapsed, 10*time.Second, "retrying")
		if !strings.Contains(buf.String(), tt.want+" retrying") {
			t.Errorf("Escalate(%v) = %q, want level %s", tt.elapsed, buf.String(), tt.want)
		}
	}

	buf.Reset()
	Escalate(0, 0, "no budget")
	if !strings.Contains(buf.String(), "[WARN] no budget") {
		t.Errorf("zero timeout should log at warn, got %q", buf.String())
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	Close()
	Info("dropped")
	Error("dropped")
	if GetWriter() == nil {
		t.Error("GetWriter should never return nil")
	}
}
