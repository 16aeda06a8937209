// Package czml reads scene documents and applies their packets to an entity
// collection.
//
// A document is either a list of packets or a single packet. It may be
// JSON or msgpack, optionally zstd-compressed, or a protobuf Struct /
// ListValue received over gRPC.
package czml

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/globeview/internal/dynamic"
)

// ErrUnsupportedDocument is returned for documents that are neither a
// packet nor a list of packets, or whose format is unknown.
var ErrUnsupportedDocument = errors.New("czml: unsupported document")

// Format identifies a document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatMsgpack
	FormatJSONZstd
	FormatMsgpackZstd
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	case FormatJSONZstd:
		return "json+zstd"
	case FormatMsgpackZstd:
		return "msgpack+zstd"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromName picks the format from a file name such as
// "scene.czml", "scene.msgpack" or "scene.czml.zst".
func FormatFromName(name string) (Format, error) {
	lower := strings.ToLower(name)
	compressed := strings.HasSuffix(lower, ".zst")
	lower = strings.TrimSuffix(lower, ".zst")
	switch {
	case strings.HasSuffix(lower, ".czml"), strings.HasSuffix(lower, ".json"):
		if compressed {
			return FormatJSONZstd, nil
		}
		return FormatJSON, nil
	case strings.HasSuffix(lower, ".msgpack"), strings.HasSuffix(lower, ".mpk"):
		if compressed {
			return FormatMsgpackZstd, nil
		}
		return FormatMsgpack, nil
	}
	return 0, fmt.Errorf("%w: unknown file type %q", ErrUnsupportedDocument, name)
}

// ParseFormat maps the names returned by Format.String, plus "czml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json", "czml":
		return FormatJSON, nil
	case "msgpack":
		return FormatMsgpack, nil
	case "json+zstd", "czml+zstd":
		return FormatJSONZstd, nil
	case "msgpack+zstd":
		return FormatMsgpackZstd, nil
	}
	return 0, fmt.Errorf("%w: unknown format %q", ErrUnsupportedDocument, s)
}

// Decode reads one document from r.
func Decode(r io.Reader, format Format) ([]dynamic.Packet, error) {
	switch format {
	case FormatJSONZstd, FormatMsgpackZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("czml: zstd reader: %w", err)
		}
		defer zr.Close()
		if format == FormatJSONZstd {
			return decodeJSON(zr)
		}
		return decodeMsgpack(zr)
	case FormatMsgpack:
		return decodeMsgpack(r)
	case FormatJSON:
		return decodeJSON(r)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedDocument, format)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte, format Format) ([]dynamic.Packet, error) {
	return Decode(bytes.NewReader(data), format)
}

// DecodeFile reads the document at path, choosing the format from its name.
func DecodeFile(path string) ([]dynamic.Packet, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	packets, err := Decode(bufio.NewReader(f), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return packets, nil
}

// Encode writes packets as a document. It is the inverse of Decode and is
// used to produce fixtures and compressed scene files.
func Encode(w io.Writer, format Format, packets []dynamic.Packet) error {
	switch format {
	case FormatJSON:
		return json.NewEncoder(w).Encode(packets)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(packets)
	case FormatJSONZstd, FormatMsgpackZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("czml: zstd writer: %w", err)
		}
		inner := FormatJSON
		if format == FormatMsgpackZstd {
			inner = FormatMsgpack
		}
		if err := Encode(zw, inner, packets); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return fmt.Errorf("%w: %v", ErrUnsupportedDocument, format)
}

func decodeJSON(r io.Reader) ([]dynamic.Packet, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrUnsupportedDocument, err)
	}
	return packetsOf(doc)
}

func decodeMsgpack(r io.Reader) ([]dynamic.Packet, error) {
	var doc any
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode msgpack: %v", ErrUnsupportedDocument, err)
	}
	return packetsOf(doc)
}

// FromStruct converts a protobuf Struct packet.
func FromStruct(s *structpb.Struct) (dynamic.Packet, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil packet", ErrUnsupportedDocument)
	}
	return dynamic.Packet(s.AsMap()), nil
}

// FromListValue converts a protobuf list of packets.
func FromListValue(l *structpb.ListValue) ([]dynamic.Packet, error) {
	if l == nil {
		return nil, nil
	}
	return packetsOf(l.AsSlice())
}

// ToStruct converts a packet to a protobuf Struct. Values must be
// representable by structpb.NewValue.
func ToStruct(p dynamic.Packet) (*structpb.Struct, error) {
	return structpb.NewStruct(p)
}

func packetsOf(doc any) ([]dynamic.Packet, error) {
	switch v := normalize(doc).(type) {
	case map[string]any:
		return []dynamic.Packet{v}, nil
	case []any:
		out := make([]dynamic.Packet, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: item %d is %T, not a packet", ErrUnsupportedDocument, i, item)
			}
			out = append(out, m)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: top level is %T", ErrUnsupportedDocument, v)
	}
}

// normalize rewrites msgpack's interface-keyed maps and typed slices into
// the map[string]any / []any shape the property decoders read.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return v
	}
}
