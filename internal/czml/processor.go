package czml

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
	"github.com/signalsfoundry/globeview/kb"
	"github.com/signalsfoundry/globeview/model"
)

// Packet outcomes reported to a PacketRecorder.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultDeleted = "deleted"
)

// DefaultIntervalCacheSize bounds the parsed-interval cache.
const DefaultIntervalCacheSize = 4096

// PacketRecorder counts processed packets by outcome.
type PacketRecorder interface {
	PacketProcessed(result string)
}

// Result summarises one Process call.
type Result struct {
	Processed int
	Created   int
	Deleted   int
	Failed    int
	// IDs lists the entity ids touched, in packet order.
	IDs []string
}

// Processor applies packets to an entity collection.
type Processor struct {
	collection *kb.EntityCollection
	intervals  *lru.Cache[string, model.TimeInterval]
	recorder   PacketRecorder
	log        logging.Logger
	newID      func() string
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithPacketRecorder reports packet outcomes to r.
func WithPacketRecorder(r PacketRecorder) ProcessorOption {
	return func(p *Processor) { p.recorder = r }
}

// WithLogger sets the logger used for rejected packets.
func WithLogger(l logging.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithIDGenerator replaces the uuid generator used for packets without id.
func WithIDGenerator(fn func() string) ProcessorOption {
	return func(p *Processor) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// NewProcessor builds a processor over collection with an interval cache
// of cacheSize entries (DefaultIntervalCacheSize when not positive).
func NewProcessor(collection *kb.EntityCollection, cacheSize int, opts ...ProcessorOption) (*Processor, error) {
	if collection == nil {
		return nil, errors.New("czml: entity collection is required")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultIntervalCacheSize
	}
	cache, err := lru.New[string, model.TimeInterval](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("czml: interval cache: %w", err)
	}
	p := &Processor{
		collection: collection,
		intervals:  cache,
		log:        logging.Noop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Collection returns the target collection.
func (p *Processor) Collection() *kb.EntityCollection { return p.collection }

// Process applies packets in order. A failing packet does not stop the
// batch; all failures are returned joined.
func (p *Processor) Process(ctx context.Context, packets []dynamic.Packet) (Result, error) {
	var res Result
	var errs []error
	for i, packet := range packets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		id, created, deleted, err := p.processOne(packet)
		res.Processed++
		if id != "" {
			res.IDs = append(res.IDs, id)
		}
		switch {
		case err != nil:
			res.Failed++
			p.record(ResultError)
			p.log.Warn(ctx, "packet rejected",
				logging.Int("index", i),
				logging.String("entity_id", id),
				logging.Err(err),
			)
			errs = append(errs, fmt.Errorf("packet %d (%s): %w", i, id, err))
		case deleted:
			res.Deleted++
			p.record(ResultDeleted)
		default:
			if created {
				res.Created++
			}
			p.record(ResultOK)
		}
	}
	return res, errors.Join(errs...)
}

func (p *Processor) processOne(packet dynamic.Packet) (id string, created, deleted bool, err error) {
	if packet == nil {
		return "", false, false, fmt.Errorf("%w: nil packet", ErrUnsupportedDocument)
	}
	id, ok := packet.ID()
	if !ok {
		if raw, present := packet["id"]; present && raw != nil {
			if raw == "" {
				return "", false, false, fmt.Errorf("id is empty: %w", dynamic.ErrInvalidValue)
			}
			return "", false, false, fmt.Errorf("id %v is not text: %w", raw, dynamic.ErrInvalidValue)
		}
		id = p.newID()
	}

	if del, _ := packet["delete"].(bool); del {
		if err := p.collection.Remove(id); err != nil {
			return id, false, false, err
		}
		return id, false, true, nil
	}

	existed := p.collection.Get(id) != nil
	e := p.collection.GetOrCreate(id)
	if _, err := dynamic.ProcessPacketWith(e, packet, p.parseInterval); err != nil {
		return id, !existed, false, err
	}
	return id, !existed, false, nil
}

// parseInterval caches successful parses; malformed text is parsed again
// each time so the error stays precise.
func (p *Processor) parseInterval(text string) (model.TimeInterval, error) {
	if iv, ok := p.intervals.Get(text); ok {
		return iv, nil
	}
	iv, err := model.ParseInterval(text)
	if err != nil {
		return model.TimeInterval{}, err
	}
	p.intervals.Add(text, iv)
	return iv, nil
}

func (p *Processor) record(result string) {
	if p.recorder != nil {
		p.recorder.PacketProcessed(result)
	}
}
