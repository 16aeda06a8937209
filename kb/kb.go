package kb

import (
	"errors"
	"sync"

	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/model"
)

// ErrEntityNotFound is returned when an entity ID is not in the collection.
var ErrEntityNotFound = errors.New("entity not found")

// EventType indicates what kind of change happened in the collection.
type EventType int

const (
	EventEntityCreated EventType = iota
	EventEntityRemoved
	EventCollectionCleared
)

func (t EventType) String() string {
	switch t {
	case EventEntityCreated:
		return "created"
	case EventEntityRemoved:
		return "removed"
	case EventCollectionCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when entities come and go.
type Event struct {
	Type     EventType
	EntityID string
}

type subscriber struct {
	id int
	fn func(Event)
}

// EntityCollection is an in-memory, thread-safe store of entities keyed by
// ID. Iteration follows creation order.
type EntityCollection struct {
	mu sync.RWMutex

	entities map[string]*dynamic.Entity
	order    []string

	subs   []subscriber
	nextID int
}

// NewEntityCollection constructs an empty collection.
func NewEntityCollection() *EntityCollection {
	return &EntityCollection{
		entities: make(map[string]*dynamic.Entity),
	}
}

// GetOrCreate returns the entity with the given ID, creating it if needed.
// Repeated calls with the same ID return the same entity.
func (c *EntityCollection) GetOrCreate(id string) *dynamic.Entity {
	c.mu.Lock()
	if e, ok := c.entities[id]; ok {
		c.mu.Unlock()
		return e
	}
	e := dynamic.NewEntity(id)
	c.entities[id] = e
	c.order = append(c.order, id)
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventEntityCreated, EntityID: id})
	return e
}

// Get returns the entity with the given ID, or nil if not found.
func (c *EntityCollection) Get(id string) *dynamic.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entities[id]
}

// Remove deletes the entity with the given ID.
func (c *EntityCollection) Remove(id string) error {
	c.mu.Lock()
	if _, ok := c.entities[id]; !ok {
		c.mu.Unlock()
		return ErrEntityNotFound
	}
	delete(c.entities, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventEntityRemoved, EntityID: id})
	return nil
}

// Clear drops every entity and all of its facet data.
func (c *EntityCollection) Clear() {
	c.mu.Lock()
	c.entities = make(map[string]*dynamic.Entity)
	c.order = nil
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventCollectionCleared})
}

// Entities returns a snapshot slice of all entities in creation order.
func (c *EntityCollection) Entities() []*dynamic.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]*dynamic.Entity, 0, len(c.order))
	for _, id := range c.order {
		res = append(res, c.entities[id])
	}
	return res
}

// Len returns the number of entities.
func (c *EntityCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// ComputeAvailability returns the union across entities of each entity's
// availability. Entities without properties, or whose property spans do
// not overlap, are skipped. When nothing yields a finite span the result
// is model.Infinite.
func (c *EntityCollection) ComputeAvailability() model.TimeInterval {
	var out model.TimeInterval
	found := false
	for _, e := range c.Entities() {
		span, ok := e.Availability()
		if !ok || span.IsInfinite() {
			continue
		}
		if !found {
			out, found = span, true
			continue
		}
		out = out.Union(span)
	}
	if !found {
		return model.Infinite
	}
	return out
}

// Subscribe registers a callback for collection events. It returns an
// unsubscribe function.
func (c *EntityCollection) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *EntityCollection) snapshotSubs() []subscriber {
	return append([]subscriber(nil), c.subs...)
}

// notify runs outside the lock so subscribers may call back into the
// collection.
func notify(subs []subscriber, event Event) {
	for _, s := range subs {
		s.fn(event)
	}
}
