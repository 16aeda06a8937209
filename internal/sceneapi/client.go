package sceneapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
)

// SceneServiceClient is the client API for the scene service.
type SceneServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSceneServiceClient wraps cc.
func NewSceneServiceClient(cc grpc.ClientConnInterface) *SceneServiceClient {
	return &SceneServiceClient{cc: cc}
}

func (c *SceneServiceClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

// LoadDocument replaces the remote scene.
func (c *SceneServiceClient) LoadDocument(ctx context.Context, packets []dynamic.Packet, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := packetList(packets)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "LoadDocument", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessPackets merges packets into the remote scene.
func (c *SceneServiceClient) ProcessPackets(ctx context.Context, packets []dynamic.Packet, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := packetList(packets)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "ProcessPackets", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetEntity fetches one entity snapshot.
func (c *SceneServiceClient) GetEntity(ctx context.Context, id string, opts ...grpc.CallOption) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "GetEntity", wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// RemoveEntity deletes one entity.
func (c *SceneServiceClient) RemoveEntity(ctx context.Context, id string, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "RemoveEntity", wrapperspb.String(id), new(emptypb.Empty), opts...)
}

// ListEntities returns the remote entity ids.
func (c *SceneServiceClient) ListEntities(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, "ListEntities", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		ids = append(ids, v.GetStringValue())
	}
	return ids, nil
}

func packetList(packets []dynamic.Packet) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(packets))
	for _, p := range packets {
		s, err := czml.ToStruct(p)
		if err != nil {
			return nil, fmt.Errorf("sceneapi: packet %v: %w", p["id"], err)
		}
		values = append(values, structpb.NewStructValue(s))
	}
	return &structpb.ListValue{Values: values}, nil
}

// HTTPClient talks to the HTTP API. Requests carry trace context.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	format     czml.Format
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithFormat sets the encoding of uploaded documents.
func WithFormat(f czml.Format) HTTPClientOption {
	return func(c *HTTPClient) { c.format = f }
}

// WithHTTPDoer replaces the underlying *http.Client.
func WithHTTPDoer(hc *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewHTTPClient returns a client for the API at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		format:     czml.FormatJSON,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostPackets queues packets for the next frame, or merges them at once
// when sync is set.
func (c *HTTPClient) PostPackets(ctx context.Context, packets []dynamic.Packet, sync bool) (map[string]any, error) {
	path := "/v1/packets"
	if sync {
		path += "?sync=true"
	}
	return c.upload(ctx, path, packets)
}

// PostDocument replaces the remote scene.
func (c *HTTPClient) PostDocument(ctx context.Context, packets []dynamic.Packet) (map[string]any, error) {
	return c.upload(ctx, "/v1/document", packets)
}

// Entity fetches one entity snapshot.
func (c *HTTPClient) Entity(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/v1/entities/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// Clock fetches the remote clock state.
func (c *HTTPClient) Clock(ctx context.Context) (ClockState, error) {
	var out ClockState
	err := c.do(ctx, http.MethodGet, "/v1/clock", nil, nil, &out)
	return out, err
}

func (c *HTTPClient) upload(ctx context.Context, path string, packets []dynamic.Packet) (map[string]any, error) {
	var body bytes.Buffer
	if err := czml.Encode(&body, c.format, packets); err != nil {
		return nil, err
	}
	header := http.Header{}
	switch c.format {
	case czml.FormatMsgpack, czml.FormatMsgpackZstd:
		header.Set("Content-Type", ContentTypeMsgpack)
	default:
		header.Set("Content-Type", ContentTypeJSON)
	}
	if c.format == czml.FormatJSONZstd || c.format == czml.FormatMsgpackZstd {
		header.Set("Content-Encoding", "zstd")
	}
	var out map[string]any
	err := c.do(ctx, http.MethodPost, path, header, &body, &out)
	return out, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, header http.Header, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(requestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var problem struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&problem)
		return fmt.Errorf("sceneapi: %s %s: %s: %s", method, path, resp.Status, problem.Error)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
