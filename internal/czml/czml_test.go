package czml

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/types/known/structpb"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/kb"
	"github.com/signalsfoundry/globeview/model"
)

const sampleDocument = `[
  {"id": "sat", "position": {"cartesian": [1, 2, 3]}, "point": {"pixelSize": 8}},
  {"id": "gs", "label": {"text": "Ground", "interval": "2012-03-15T10:00:00Z/2012-03-15T11:00:00Z"}}
]`

func TestFormatFromName(t *testing.T) {
	tests := map[string]Format{
		"scene.czml":        FormatJSON,
		"scene.JSON":        FormatJSON,
		"scene.czml.zst":    FormatJSONZstd,
		"scene.msgpack":     FormatMsgpack,
		"scene.msgpack.zst": FormatMsgpackZstd,
		"dir/scene.mpk.zst": FormatMsgpackZstd,
	}
	for name, want := range tests {
		got, err := FormatFromName(name)
		if err != nil || got != want {
			t.Fatalf("FormatFromName(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := FormatFromName("scene.kml"); !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("kml error = %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	packets, err := DecodeBytes([]byte(sampleDocument), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("packets = %d, want 2", len(packets))
	}
	if id, _ := packets[1].ID(); id != "gs" {
		t.Fatalf("second id = %q", id)
	}

	single, err := DecodeBytes([]byte(`{"id": "one"}`), FormatJSON)
	if err != nil || len(single) != 1 {
		t.Fatalf("single packet: %v, %v", single, err)
	}

	for _, doc := range []string{`42`, `[1, 2]`} {
		if _, err := DecodeBytes([]byte(doc), FormatJSON); !errors.Is(err, ErrUnsupportedDocument) {
			t.Fatalf("DecodeBytes(%s) error = %v", doc, err)
		}
	}
}

func TestEncodedFormatsDecodeToTheSamePackets(t *testing.T) {
	want, err := DecodeBytes([]byte(sampleDocument), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	for _, format := range []Format{FormatMsgpack, FormatJSONZstd, FormatMsgpackZstd} {
		t.Run(format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, format, want); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			// msgpack keeps small integers as integers; compare by applying
			// both documents.
			a, b := kb.NewEntityCollection(), kb.NewEntityCollection()
			apply(t, a, want)
			apply(t, b, got)
			pos, _ := b.Get("sat").Position.Constant()
			if pos != (r3.Vec{X: 1, Y: 2, Z: 3}) {
				t.Fatalf("position = %v", pos)
			}
			size, _ := b.Get("sat").Point.PixelSize.Constant()
			if size != 8 {
				t.Fatalf("pixel size = %v", size)
			}
			if diff := cmp.Diff(a.ComputeAvailability().String(), b.ComputeAvailability().String()); diff != "" {
				t.Fatalf("availability mismatch:\n%s", diff)
			}
		})
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.czml.zst")
	packets, err := DecodeBytes([]byte(sampleDocument), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := Encode(f, FormatJSONZstd, packets); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("packets = %d, want 2", len(got))
	}
}

func TestStructRoundTrip(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"id":       "sat",
		"position": map[string]any{"cartesian": []any{1.0, 2.0, 3.0}},
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	packet, err := FromStruct(s)
	if err != nil {
		t.Fatalf("FromStruct: %v", err)
	}
	coll := kb.NewEntityCollection()
	apply(t, coll, []dynamic.Packet{packet})
	if pos, _ := coll.Get("sat").Position.Constant(); pos != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("position = %v", pos)
	}

	back, err := ToStruct(packet)
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	if back.Fields["id"].GetStringValue() != "sat" {
		t.Fatalf("id lost: %v", back)
	}
	if _, err := FromStruct(nil); !errors.Is(err, ErrUnsupportedDocument) {
		t.Fatalf("FromStruct(nil) error = %v", err)
	}
}

func apply(t *testing.T, coll *kb.EntityCollection, packets []dynamic.Packet) {
	t.Helper()
	p, err := NewProcessor(coll, 0)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	if _, err := p.Process(context.Background(), packets); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

type resultCounter map[string]int

func (r resultCounter) PacketProcessed(result string) { r[result]++ }

func TestProcessorAssignsIDsAndDeletes(t *testing.T) {
	coll := kb.NewEntityCollection()
	counts := resultCounter{}
	n := 0
	p, err := NewProcessor(coll, 16, WithPacketRecorder(counts), WithIDGenerator(func() string {
		n++
		return "generated-" + strings.Repeat("x", n)
	}))
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	res, err := p.Process(context.Background(), []dynamic.Packet{
		{"id": "a", "point": map[string]any{"pixelSize": 2.0}},
		{"point": map[string]any{"pixelSize": 3.0}},
		{"id": "a", "point": map[string]any{"show": false}},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := Result{Processed: 3, Created: 2, IDs: []string{"a", "generated-x", "a"}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if coll.Get("generated-x") == nil {
		t.Fatalf("packet without id not stored under the generated id")
	}

	res, err = p.Process(context.Background(), []dynamic.Packet{{"id": "a", "delete": true}})
	if err != nil || res.Deleted != 1 || coll.Get("a") != nil {
		t.Fatalf("delete: %+v, %v", res, err)
	}
	if diff := cmp.Diff(resultCounter{ResultOK: 3, ResultDeleted: 1}, counts); diff != "" {
		t.Fatalf("recorded outcomes (-want +got):\n%s", diff)
	}
}

func TestProcessorJoinsErrors(t *testing.T) {
	coll := kb.NewEntityCollection()
	p, err := NewProcessor(coll, 0)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	res, err := p.Process(context.Background(), []dynamic.Packet{
		{"id": "bad-interval", "point": map[string]any{"interval": "not an interval", "pixelSize": 1.0}},
		{"id": "good", "point": map[string]any{"pixelSize": 1.0}},
		{"id": "missing", "delete": true},
		{"id": 7},
	})
	if !errors.Is(err, model.ErrParse) {
		t.Fatalf("error %v should wrap a parse error", err)
	}
	if !errors.Is(err, kb.ErrEntityNotFound) {
		t.Fatalf("error %v should report the missing entity", err)
	}
	if !errors.Is(err, dynamic.ErrInvalidValue) {
		t.Fatalf("error %v should report the non-text id", err)
	}
	if res.Processed != 4 || res.Failed != 3 {
		t.Fatalf("result = %+v", res)
	}
	if coll.Get("good") == nil {
		t.Fatalf("valid packet should still be applied")
	}
}

func TestProcessorRejectsEmptyID(t *testing.T) {
	coll := kb.NewEntityCollection()
	p, err := NewProcessor(coll, 0)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	res, err := p.Process(context.Background(), []dynamic.Packet{{"id": "", "point": map[string]any{}}})
	if !errors.Is(err, dynamic.ErrInvalidValue) {
		t.Fatalf("error = %v, want ErrInvalidValue", err)
	}
	if !strings.Contains(err.Error(), "id is empty") {
		t.Fatalf("error %q should say the id is empty", err)
	}
	if res.Failed != 1 || coll.Len() != 0 {
		t.Fatalf("result = %+v, entities = %d", res, coll.Len())
	}
}

func TestProcessorCachesIntervals(t *testing.T) {
	coll := kb.NewEntityCollection()
	p, err := NewProcessor(coll, 0)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	const text = "2012-03-15T10:00:00Z/2012-03-15T11:00:00Z"
	packet := func(id string) dynamic.Packet {
		return dynamic.Packet{"id": id, "point": map[string]any{"interval": text, "pixelSize": 1.0}}
	}
	if _, err := p.Process(context.Background(), []dynamic.Packet{packet("a"), packet("b")}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if p.intervals.Len() != 1 || !p.intervals.Contains(text) {
		t.Fatalf("cache holds %v", p.intervals.Keys())
	}

	at := time.Date(2012, 3, 15, 10, 30, 0, 0, time.UTC)
	if v, ok := coll.Get("b").Point.PixelSize.ValueAt(at); !ok || v != 1 {
		t.Fatalf("pixel size at %v = %v, %v", at, v, ok)
	}
}

func TestProcessStopsOnCancelledContext(t *testing.T) {
	coll := kb.NewEntityCollection()
	p, err := NewProcessor(coll, 0)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Process(ctx, []dynamic.Packet{{"id": "a"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v", err)
	}
	if coll.Len() != 0 {
		t.Fatalf("cancelled batch applied packets")
	}
}
