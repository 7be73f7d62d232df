package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			t.Fatalf("decode log json %q: %v", line, err)
		}
		out = append(out, payload)
	}
	return out
}

func TestReservedKeysWinOverFields(t *testing.T) {
	buf := capture(t)
	Warn("workflow.progress_failed", map[string]any{"level": "spoofed", "msg": "x", "user_id": "u1"})

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	payload := lines[0]
	if payload["level"] != "warn" {
		t.Fatalf("expected level warn, got %v", payload["level"])
	}
	if payload["msg"] != "workflow.progress_failed" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["user_id"] != "u1" {
		t.Fatalf("unexpected user_id: %v", payload["user_id"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts")
	}
}

func TestErrorValuesRenderAsText(t *testing.T) {
	buf := capture(t)
	Error("jobs.submit_failed", map[string]any{"error": errors.New("boom")})

	lines := decodeLines(t, buf)
	if len(lines) != 1 || lines[0]["error"] != "boom" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestSetLevelFilters(t *testing.T) {
	buf := capture(t)
	SetLevel("warn")
	Info("dropped", nil)
	Debug("dropped", nil)
	Error("kept", nil)

	lines := decodeLines(t, buf)
	if len(lines) != 1 || lines[0]["msg"] != "kept" {
		t.Fatalf("unexpected output: %s", buf.String())
	}

	SetLevel("nonsense")
	Info("kept.info", nil)
	if lines = decodeLines(t, buf); len(lines) != 2 {
		t.Fatalf("expected unknown level to fall back to info: %s", buf.String())
	}
}

func TestErr(t *testing.T) {
	if Err(nil) != "" {
		t.Fatalf("expected empty string for nil error")
	}
	if Err(errors.New("boom")) != "boom" {
		t.Fatalf("expected error text")
	}
}
