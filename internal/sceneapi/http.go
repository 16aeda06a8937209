package sceneapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/rs/cors"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
	"github.com/signalsfoundry/globeview/kb"
	"github.com/signalsfoundry/globeview/model"
	"github.com/signalsfoundry/globeview/timectrl"
)

const (
	requestIDHeader = "X-Request-Id"

	// ContentTypeMsgpack marks a msgpack-encoded packet document.
	ContentTypeMsgpack = "application/msgpack"
	// ContentTypeJSON marks a JSON packet document.
	ContentTypeJSON = "application/json"

	maxBodyBytes = 64 << 20
)

// LiveScene is the viewer surface the HTTP API needs.
type LiveScene interface {
	Scene
	Enqueue(packets ...dynamic.Packet)
	Clock() *timectrl.TimeController
	Mode() model.SceneMode
}

// HTTPMetrics records one served request.
type HTTPMetrics interface {
	ObserveHTTP(route string, code int, d time.Duration)
}

// HTTPOption configures NewRouter.
type HTTPOption func(*httpAPI)

// WithHTTPMetrics reports request counts and latencies to m.
func WithHTTPMetrics(m HTTPMetrics) HTTPOption {
	return func(a *httpAPI) { a.metrics = m }
}

// WithHTTPLogger sets the base request logger.
func WithHTTPLogger(l logging.Logger) HTTPOption {
	return func(a *httpAPI) {
		if l != nil {
			a.log = l
		}
	}
}

type httpAPI struct {
	scene   LiveScene
	service *SceneService
	metrics HTTPMetrics
	log     logging.Logger
}

// NewRouter returns the HTTP API for scene.
//
//	POST   /v1/packets          merge packets at the next frame (?sync=true merges now)
//	POST   /v1/document         replace the scene
//	GET    /v1/entities         list entity ids
//	GET    /v1/entities/{id}    entity snapshot at the clock time
//	DELETE /v1/entities/{id}    remove an entity
//	GET    /v1/clock            clock state
//	GET    /healthz             liveness
func NewRouter(serviceName string, scene LiveScene, opts ...HTTPOption) http.Handler {
	a := &httpAPI{scene: scene, log: logging.Noop()}
	for _, opt := range opts {
		opt(a)
	}
	a.service = NewSceneService(scene, a.log)

	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
		Debug:            false,
	}).Handler)
	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(a.requestContext)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/packets", a.postPackets)
		r.Post("/document", a.postDocument)
		r.Get("/entities", a.listEntities)
		r.Get("/entities/{id}", a.getEntity)
		r.Delete("/entities/{id}", a.deleteEntity)
		r.Get("/clock", a.getClock)
	})
	return r
}

// requestContext attaches a request id and logger, echoes the id and
// records metrics under the matched route pattern.
func (a *httpAPI) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if id := r.Header.Get(requestIDHeader); id != "" {
			ctx = logging.ContextWithRequestID(ctx, id)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, a.log.With(
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		))
		ctx = logging.ContextWithLogger(ctx, reqLog)
		w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if a.metrics != nil {
			a.metrics.ObserveHTTP(route, code, time.Since(start))
		}
		reqLog.Debug(ctx, "request served", logging.Int("status", code), logging.String("route", route))
	})
}

func (a *httpAPI) postPackets(w http.ResponseWriter, r *http.Request) {
	packets, err := decodeBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("sync") != "true" {
		a.scene.Enqueue(packets...)
		writeJSON(w, http.StatusAccepted, map[string]any{"queued": len(packets)})
		return
	}
	res, err := a.scene.Process(r.Context(), packets)
	a.writeResult(w, r, "process packets", res, err)
}

func (a *httpAPI) postDocument(w http.ResponseWriter, r *http.Request) {
	packets, err := decodeBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.scene.LoadDocument(r.Context(), packets)
	a.writeResult(w, r, "load document", res, err)
}

func (a *httpAPI) writeResult(w http.ResponseWriter, r *http.Request, op string, res czml.Result, err error) {
	out, err := a.service.result(r.Context(), op, res, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out.AsMap())
}

func (a *httpAPI) listEntities(w http.ResponseWriter, r *http.Request) {
	ids := []string{}
	err := a.scene.View(func(c *kb.EntityCollection, _ time.Time) {
		for _, e := range c.Entities() {
			ids = append(ids, e.ID())
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": ids})
}

func (a *httpAPI) getEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var snap map[string]any
	err := a.scene.View(func(c *kb.EntityCollection, now time.Time) {
		if e := c.Get(id); e != nil {
			snap = Snapshot(e, now)
		}
	})
	if err == nil && snap == nil {
		err = kb.ErrEntityNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *httpAPI) deleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := a.scene.RemoveEntity(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClockState is the body of GET /v1/clock.
type ClockState struct {
	Current    string  `json:"currentTime"`
	Start      string  `json:"startTime"`
	Stop       string  `json:"stopTime"`
	Multiplier float64 `json:"multiplier"`
	Range      string  `json:"clockRange"`
	Mode       string  `json:"sceneMode"`
}

func (a *httpAPI) getClock(w http.ResponseWriter, _ *http.Request) {
	clock := a.scene.Clock()
	start, stop := clock.Bounds()
	writeJSON(w, http.StatusOK, ClockState{
		Current:    model.FormatTime(clock.Now()),
		Start:      model.FormatTime(start),
		Stop:       model.FormatTime(stop),
		Multiplier: clock.Multiplier(),
		Range:      clock.Range().String(),
		Mode:       a.scene.Mode().String(),
	})
}

// decodeBody reads a packet document, choosing the codec from the
// Content-Type and Content-Encoding headers.
func decodeBody(w http.ResponseWriter, r *http.Request) ([]dynamic.Packet, error) {
	format := czml.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "msgpack") {
		format = czml.FormatMsgpack
	}
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "zstd") {
		if format == czml.FormatMsgpack {
			format = czml.FormatMsgpackZstd
		} else {
			format = czml.FormatJSONZstd
		}
	}
	return czml.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), format)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		if l := logging.LoggerFromContext(r.Context()); l != nil {
			l.Error(r.Context(), "request failed", logging.Err(err))
		}
	}
	writeJSON(w, code, map[string]any{"error": status.Convert(err).Message(), "status": code})
}
