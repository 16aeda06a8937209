package timectrl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/globeview/model"
)

// SimClock is an interface for accessing simulation time, so that frame
// drivers can depend on a clock abstraction rather than a concrete type.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Mode describes how Run advances simulation time.
type Mode int

const (
	// RealTime advances by the measured wall-clock time times the multiplier.
	RealTime Mode = iota
	// Accelerated advances by exactly Tick times the multiplier per tick.
	Accelerated
)

// ClockRange decides what happens when the current time leaves
// [start, stop].
type ClockRange int

const (
	// Unbounded lets time run past either end.
	Unbounded ClockRange = iota
	// Clamped holds time at the end it reached.
	Clamped
	// Loop wraps time to the opposite end.
	Loop
)

func (r ClockRange) String() string {
	switch r {
	case Unbounded:
		return "unbounded"
	case Clamped:
		return "clamped"
	case Loop:
		return "loop"
	default:
		return fmt.Sprintf("ClockRange(%d)", int(r))
	}
}

// ParseClockRange maps the names returned by ClockRange.String.
func ParseClockRange(s string) (ClockRange, error) {
	switch s {
	case "", "unbounded":
		return Unbounded, nil
	case "clamped":
		return Clamped, nil
	case "loop":
		return Loop, nil
	}
	return 0, fmt.Errorf("timectrl: unknown clock range %q", s)
}

// DefaultMultiplier is the playback rate of a freshly configured clock.
const DefaultMultiplier = 60

// TimeController drives simulation time and notifies registered listeners.
type TimeController struct {
	mu         sync.RWMutex
	StartTime  time.Time
	StopTime   time.Time
	Tick       time.Duration
	Mode       Mode
	multiplier float64
	clockRange ClockRange

	// currentTime tracks the current simulation time. It is updated
	// as the controller advances time.
	currentTime time.Time

	listeners []func(time.Time)
}

// NewTimeController constructs an unbounded controller at start running at
// real-time rate.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		StopTime:    start,
		Tick:        tick,
		Mode:        mode,
		multiplier:  1,
		currentTime: start,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime moves the current time without notifying listeners.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.currentTime = t
	tc.mu.Unlock()
}

// Multiplier returns the simulation seconds advanced per wall second.
func (tc *TimeController) Multiplier() float64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.multiplier
}

// SetMultiplier changes the playback rate; negative values run backwards
// and zero pauses.
func (tc *TimeController) SetMultiplier(m float64) {
	tc.mu.Lock()
	tc.multiplier = m
	tc.mu.Unlock()
}

// Range returns the clock range behaviour.
func (tc *TimeController) Range() ClockRange {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.clockRange
}

// SetRange bounds the clock to [start, stop] with the given behaviour.
func (tc *TimeController) SetRange(start, stop time.Time, r ClockRange) {
	tc.mu.Lock()
	tc.StartTime, tc.StopTime, tc.clockRange = start, stop, r
	tc.mu.Unlock()
}

// Bounds returns the configured start and stop times.
func (tc *TimeController) Bounds() (start, stop time.Time) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.StartTime, tc.StopTime
}

// ConfigureFromAvailability fits the clock to a scene's availability. An
// infinite availability yields now .. now+1 day, unbounded; otherwise the
// clock loops over the availability. The multiplier is reset to
// DefaultMultiplier and the current time to the start.
func (tc *TimeController) ConfigureFromAvailability(availability model.TimeInterval, now time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if availability.IsInfinite() || availability.IsEmpty() {
		tc.StartTime = now
		tc.StopTime = now.Add(24 * time.Hour)
		tc.clockRange = Unbounded
	} else {
		tc.StartTime = availability.Start
		tc.StopTime = availability.Stop
		tc.clockRange = Loop
	}
	tc.multiplier = DefaultMultiplier
	tc.currentTime = tc.StartTime
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Advance moves the clock by elapsed wall time scaled by the multiplier,
// applies the clock range and notifies listeners. It returns the new time.
func (tc *TimeController) Advance(elapsed time.Duration) time.Time {
	tc.mu.Lock()
	step := time.Duration(float64(elapsed) * tc.multiplier)
	next := tc.bound(tc.currentTime.Add(step), step)
	tc.currentTime = next
	listeners := append([]func(time.Time){}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

func (tc *TimeController) bound(t time.Time, step time.Duration) time.Time {
	if tc.clockRange == Unbounded || !tc.StopTime.After(tc.StartTime) {
		return t
	}
	switch {
	case t.After(tc.StopTime):
		if tc.clockRange == Loop && step > 0 {
			return tc.StartTime
		}
		return tc.StopTime
	case t.Before(tc.StartTime):
		if tc.clockRange == Loop && step < 0 {
			return tc.StopTime
		}
		return tc.StartTime
	}
	return t
}

// Start runs the controller for the specified wall duration in a separate
// goroutine. It returns a channel that is closed when the controller
// finishes.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	return tc.Run(context.Background(), duration)
}

// Run advances the clock on every Tick until ctx is done or, when
// duration is positive, that much wall time worth of ticks has elapsed.
func (tc *TimeController) Run(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		elapsed := time.Duration(0)

		// In both modes we use a ticker for simplicity and determinism.
		ticker := time.NewTicker(tc.Tick)
		defer ticker.Stop()
		last := time.Now()

		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				step := tc.Tick
				if tc.Mode == RealTime {
					step = now.Sub(last)
				}
				last = now
				elapsed += tc.Tick
				tc.Advance(step)
			}
		}
	}()
	return done
}
