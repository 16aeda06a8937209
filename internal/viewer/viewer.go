// Package viewer drives a scene frame by frame: pending packet merges, then
// navigation, then visualizers, all at the scene clock's current time.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/globeview/internal/camera"
	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
	"github.com/signalsfoundry/globeview/internal/navigation"
	"github.com/signalsfoundry/globeview/internal/observability"
	"github.com/signalsfoundry/globeview/internal/visualizer"
	"github.com/signalsfoundry/globeview/kb"
	"github.com/signalsfoundry/globeview/model"
	"github.com/signalsfoundry/globeview/timectrl"
)

// ErrClosed is returned by operations on a destroyed viewer.
var ErrClosed = errors.New("viewer: closed")

// Metrics receives frame and scene measurements. *observability.SceneCollector
// implements it.
type Metrics interface {
	czml.PacketRecorder
	visualizer.MetricsRecorder
	navigation.OperationRecorder
	ObserveFrame(d time.Duration)
	SetEntityCount(n int)
}

// FrameStats summarises one frame.
type FrameStats struct {
	Time     time.Time
	Merged   czml.Result
	Entities int
	Shown    int
	Duration time.Duration
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithMetrics reports scene measurements to m.
func WithMetrics(m Metrics) Option {
	return func(v *Viewer) { v.metrics = m }
}

// WithLogger sets the viewer logger.
func WithLogger(l logging.Logger) Option {
	return func(v *Viewer) {
		if l != nil {
			v.log = l
		}
	}
}

// WithNow replaces the wall clock used to fit the scene clock.
func WithNow(now func() time.Time) Option {
	return func(v *Viewer) {
		if now != nil {
			v.now = now
		}
	}
}

// WithTracer traces every frame with t.
func WithTracer(t trace.Tracer) Option {
	return func(v *Viewer) { v.tracer = t }
}

// Viewer owns a scene and everything needed to draw it.
type Viewer struct {
	cfg Config

	// mu serialises packet merges with frames.
	mu          sync.Mutex
	collection  *kb.EntityCollection
	processor   *czml.Processor
	primitives  *visualizer.PrimitiveList
	visualizers *visualizer.Collection
	camera      *camera.Camera
	controller  *camera.Controller
	navigation  *navigation.ViewModel
	clock       *timectrl.TimeController
	mode        model.SceneMode
	closed      bool

	pendingMu sync.Mutex
	pending   []dynamic.Packet

	metrics Metrics
	log     logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// New builds a viewer with an empty scene.
func New(cfg Config, opts ...Option) (*Viewer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := model.ParseSceneMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		cfg:        cfg,
		collection: kb.NewEntityCollection(),
		primitives: visualizer.NewPrimitiveList(),
		mode:       mode,
		log:        logging.Noop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.tracer == nil {
		v.tracer = observability.Tracer()
	}

	procOpts := []czml.ProcessorOption{czml.WithLogger(v.log)}
	visOpts := []visualizer.Option{}
	navOpts := []navigation.Option{navigation.WithConfig(cfg.Navigation)}
	if v.metrics != nil {
		procOpts = append(procOpts, czml.WithPacketRecorder(v.metrics))
		visOpts = append(visOpts, visualizer.WithMetricsRecorder(v.metrics))
		navOpts = append(navOpts, navigation.WithRecorder(v.metrics))
	}

	if v.processor, err = czml.NewProcessor(v.collection, cfg.IntervalCacheSize, procOpts...); err != nil {
		return nil, err
	}
	if v.visualizers, err = visualizer.NewStandardCollection(v.primitives, v.collection, visOpts...); err != nil {
		return nil, err
	}

	canvas := camera.Size{Width: cfg.CanvasWidth, Height: cfg.CanvasHeight}
	if v.camera, err = camera.New(canvas); err != nil {
		return nil, err
	}
	if v.controller, err = camera.NewController(v.camera); err != nil {
		return nil, err
	}
	if v.navigation, err = navigation.New(canvas, v.controller, navOpts...); err != nil {
		return nil, err
	}
	v.controller.SetEllipsoid(v.navigation.Ellipsoid())
	v.controller.ResetView(mode)

	v.clock = timectrl.NewTimeController(v.now().UTC(), cfg.FrameInterval, timectrl.RealTime)
	v.fitClock()
	v.clock.AddListener(func(time.Time) {
		if _, err := v.Frame(context.Background()); err != nil && !errors.Is(err, ErrClosed) {
			v.log.Warn(context.Background(), "frame failed", logging.Err(err))
		}
	})
	return v, nil
}

// Collection returns the scene's entities.
func (v *Viewer) Collection() *kb.EntityCollection { return v.collection }

// Primitives returns the primitive pool the visualizers draw into.
func (v *Viewer) Primitives() *visualizer.PrimitiveList { return v.primitives }

// Visualizers returns the visualizer collection.
func (v *Viewer) Visualizers() *visualizer.Collection { return v.visualizers }

// Navigation returns the navigation view-model.
func (v *Viewer) Navigation() *navigation.ViewModel { return v.navigation }

// Camera returns the camera.
func (v *Viewer) Camera() *camera.Camera { return v.camera }

// Controller returns the camera controller.
func (v *Viewer) Controller() *camera.Controller { return v.controller }

// Clock returns the scene clock.
func (v *Viewer) Clock() *timectrl.TimeController { return v.clock }

// Mode returns the scene mode.
func (v *Viewer) Mode() model.SceneMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// SetMode switches the scene mode and resets the camera for it.
func (v *Viewer) SetMode(mode model.SceneMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
	v.controller.ResetView(mode)
}

// Enqueue queues packets for the next frame. It is safe to call from any
// goroutine.
func (v *Viewer) Enqueue(packets ...dynamic.Packet) {
	v.pendingMu.Lock()
	v.pending = append(v.pending, packets...)
	v.pendingMu.Unlock()
}

// Pending returns the number of queued packets.
func (v *Viewer) Pending() int {
	v.pendingMu.Lock()
	defer v.pendingMu.Unlock()
	return len(v.pending)
}

// Process merges packets now, between frames.
func (v *Viewer) Process(ctx context.Context, packets []dynamic.Packet) (czml.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return czml.Result{}, ErrClosed
	}
	res, err := v.processor.Process(ctx, packets)
	v.reportEntities()
	return res, err
}

// LoadDocument replaces the scene with packets and fits the clock to the
// new availability.
func (v *Viewer) LoadDocument(ctx context.Context, packets []dynamic.Packet) (czml.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return czml.Result{}, ErrClosed
	}
	v.visualizers.RemoveAllPrimitives()
	v.collection.Clear()
	res, err := v.processor.Process(ctx, packets)
	v.fitClock()
	v.reportEntities()
	v.log.Info(ctx, "document loaded",
		logging.Int("packets", res.Processed),
		logging.Int("entities", v.collection.Len()),
		logging.Int("failed", res.Failed),
	)
	return res, err
}

// RemoveEntity deletes id from the scene.
func (v *Viewer) RemoveEntity(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if err := v.collection.Remove(id); err != nil {
		return err
	}
	v.reportEntities()
	return nil
}

// View calls fn with the scene and the clock time while no frame or merge
// runs. fn must not retain the entities.
func (v *Viewer) View(fn func(c *kb.EntityCollection, now time.Time)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	fn(v.collection, v.clock.Now())
	return nil
}

// Frame runs one frame at the clock's current time.
func (v *Viewer) Frame(ctx context.Context) (FrameStats, error) {
	start := time.Now()
	at := v.clock.Now()
	ctx, span := v.tracer.Start(ctx, "viewer.Frame")
	defer span.End()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return FrameStats{}, ErrClosed
	}

	v.pendingMu.Lock()
	pending := v.pending
	v.pending = nil
	v.pendingMu.Unlock()

	stats := FrameStats{Time: at}
	var err error
	if len(pending) > 0 {
		stats.Merged, err = v.processor.Process(ctx, pending)
		if err != nil {
			err = fmt.Errorf("viewer: merge %d packets: %w", len(pending), err)
		}
	}

	v.navigation.Update(v.mode)
	v.visualizers.Update(at)

	stats.Entities = v.collection.Len()
	stats.Shown = v.primitives.Shown()
	stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("packets", len(pending)),
		attribute.Int("entities", stats.Entities),
		attribute.Int("primitives_shown", stats.Shown),
	)
	if v.metrics != nil {
		v.metrics.ObserveFrame(stats.Duration)
		v.metrics.SetEntityCount(stats.Entities)
	}
	return stats, err
}

// Run ticks the clock every FrameInterval, drawing a frame per tick, until
// ctx is done.
func (v *Viewer) Run(ctx context.Context) error {
	<-v.clock.Run(ctx, 0)
	return ctx.Err()
}

// Destroy releases every primitive. Later calls return ErrClosed.
func (v *Viewer) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.visualizers.Destroy()
}

// fitClock applies the scene availability and any configured overrides.
// Callers hold v.mu or have not published v yet.
func (v *Viewer) fitClock() {
	v.clock.ConfigureFromAvailability(v.collection.ComputeAvailability(), v.now().UTC())
	if v.cfg.Multiplier != 0 {
		v.clock.SetMultiplier(v.cfg.Multiplier)
	}
	if v.cfg.ClockRange != "" {
		r, _ := timectrl.ParseClockRange(v.cfg.ClockRange)
		start, stop := v.clock.Bounds()
		v.clock.SetRange(start, stop, r)
	}
}

func (v *Viewer) reportEntities() {
	if v.metrics != nil {
		v.metrics.SetEntityCount(v.collection.Len())
	}
}
