package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf}).With(String("component", "viewer"))

	log.Debug(context.Background(), "frame", Int("entities", 3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["msg"] != "frame" || rec["component"] != "viewer" || rec["entities"] != float64(3) {
		t.Fatalf("record = %v", rec)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "globeview.log")
	log := New(Config{Format: "json", File: path})
	log.Info(context.Background(), "to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) {
		t.Fatalf("log file = %q", data)
	}
}

func TestRequestIDHelpers(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" || RequestIDFromContext(ctx) != id {
		t.Fatalf("request id %q not stored", id)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", id, err)
	}
	again, same := EnsureRequestID(ctx)
	if same != id || again != ctx {
		t.Fatalf("existing request id replaced")
	}

	ctx = ContextWithLogger(ctx, nil)
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("nil logger should be stored as noop")
	}
}

func TestErrAndDurationFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Output: &buf})
	log.Warn(context.Background(), "frame failed", Err(os.ErrNotExist), Duration("took", 1500*time.Millisecond), Float64("ratio", 0.5))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["error"] != os.ErrNotExist.Error() || rec["ratio"] != 0.5 {
		t.Fatalf("record = %v", rec)
	}
	if rec["took"] != float64(1500*time.Millisecond) {
		t.Fatalf("duration = %v", rec["took"])
	}
}
