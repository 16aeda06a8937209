// Package sceneapi exposes a viewer's scene over gRPC and HTTP.
package sceneapi

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
	"github.com/signalsfoundry/globeview/internal/viewer"
	"github.com/signalsfoundry/globeview/kb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "globeview.scene.v1.SceneService"

// SceneServiceServer is the server API for the scene service. Packets
// travel as protobuf Struct values so any document shape can be sent.
type SceneServiceServer interface {
	LoadDocument(context.Context, *structpb.ListValue) (*structpb.Struct, error)
	ProcessPackets(context.Context, *structpb.ListValue) (*structpb.Struct, error)
	GetEntity(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	RemoveEntity(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ListEntities(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// Scene is the viewer surface the service needs.
type Scene interface {
	LoadDocument(ctx context.Context, packets []dynamic.Packet) (czml.Result, error)
	Process(ctx context.Context, packets []dynamic.Packet) (czml.Result, error)
	RemoveEntity(id string) error
	View(fn func(c *kb.EntityCollection, now time.Time)) error
}

var _ Scene = (*viewer.Viewer)(nil)

// SceneService implements SceneServiceServer over a Scene.
type SceneService struct {
	scene Scene
	log   logging.Logger
}

// NewSceneService returns a service backed by scene.
func NewSceneService(scene Scene, log logging.Logger) *SceneService {
	if log == nil {
		log = logging.Noop()
	}
	return &SceneService{scene: scene, log: log}
}

// LoadDocument replaces the scene with the given packets.
func (s *SceneService) LoadDocument(ctx context.Context, req *structpb.ListValue) (*structpb.Struct, error) {
	packets, err := czml.FromListValue(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	ctx, span := StartChildSpan(ctx, "SceneService.LoadDocument", "", "")
	defer span.End()

	res, err := s.scene.LoadDocument(ctx, packets)
	return s.result(ctx, "load document", res, err)
}

// ProcessPackets merges packets into the current scene.
func (s *SceneService) ProcessPackets(ctx context.Context, req *structpb.ListValue) (*structpb.Struct, error) {
	packets, err := czml.FromListValue(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	ctx, span := StartChildSpan(ctx, "SceneService.ProcessPackets", "", "")
	defer span.End()

	res, err := s.scene.Process(ctx, packets)
	return s.result(ctx, "process packets", res, err)
}

// result reports partial failures in the response; the call only fails
// when nothing could be applied.
func (s *SceneService) result(ctx context.Context, op string, res czml.Result, err error) (*structpb.Struct, error) {
	log := s.logger(ctx)
	if err != nil && (errors.Is(err, viewer.ErrClosed) || res.Failed == res.Processed && res.Processed > 0) {
		log.Warn(ctx, op+" failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	out, convErr := resultStruct(res, err)
	if convErr != nil {
		return nil, ToStatusError(convErr)
	}
	log.Info(ctx, op,
		logging.Int("processed", res.Processed),
		logging.Int("created", res.Created),
		logging.Int("deleted", res.Deleted),
		logging.Int("failed", res.Failed),
	)
	return out, nil
}

// GetEntity returns a snapshot of one entity at the clock time.
func (s *SceneService) GetEntity(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := req.GetValue()
	if id == "" {
		return nil, ToStatusError(ErrInvalidRequest)
	}
	_, span := StartChildSpan(ctx, "SceneService.GetEntity", "entity", id)
	defer span.End()

	var snap map[string]any
	err := s.scene.View(func(c *kb.EntityCollection, now time.Time) {
		if e := c.Get(id); e != nil {
			snap = Snapshot(e, now)
		}
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	if snap == nil {
		return nil, ToStatusError(kb.ErrEntityNotFound)
	}
	out, err := structpb.NewStruct(snap)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

// RemoveEntity deletes one entity.
func (s *SceneService) RemoveEntity(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id := req.GetValue()
	if id == "" {
		return nil, ToStatusError(ErrInvalidRequest)
	}
	if err := s.scene.RemoveEntity(id); err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "entity removed", logging.String("entity_id", id))
	return &emptypb.Empty{}, nil
}

// ListEntities returns every entity id in creation order.
func (s *SceneService) ListEntities(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	var ids []any
	err := s.scene.View(func(c *kb.EntityCollection, _ time.Time) {
		for _, e := range c.Entities() {
			ids = append(ids, e.ID())
		}
	})
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := structpb.NewList(ids)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

func (s *SceneService) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

func resultStruct(res czml.Result, err error) (*structpb.Struct, error) {
	ids := make([]any, len(res.IDs))
	for i, id := range res.IDs {
		ids[i] = id
	}
	m := map[string]any{
		"processed": res.Processed,
		"created":   res.Created,
		"deleted":   res.Deleted,
		"failed":    res.Failed,
		"ids":       ids,
	}
	if err != nil {
		m["error"] = err.Error()
	}
	return structpb.NewStruct(m)
}

// RegisterSceneServiceServer registers srv on s.
func RegisterSceneServiceServer(s grpc.ServiceRegistrar, srv SceneServiceServer) {
	s.RegisterService(&SceneService_ServiceDesc, srv)
}

// SceneService_ServiceDesc describes the scene service for grpc.Server.
var SceneService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SceneServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LoadDocument", Handler: unaryHandler("LoadDocument", SceneServiceServer.LoadDocument)},
		{MethodName: "ProcessPackets", Handler: unaryHandler("ProcessPackets", SceneServiceServer.ProcessPackets)},
		{MethodName: "GetEntity", Handler: unaryHandler("GetEntity", SceneServiceServer.GetEntity)},
		{MethodName: "RemoveEntity", Handler: unaryHandler("RemoveEntity", SceneServiceServer.RemoveEntity)},
		{MethodName: "ListEntities", Handler: unaryHandler("ListEntities", SceneServiceServer.ListEntities)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "globeview/scene/v1/scene.proto",
}

func unaryHandler[Req any, Resp any](method string, call func(SceneServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SceneServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SceneServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
