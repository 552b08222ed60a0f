// Package capture implements the end-of-answer detection contract the
// browser client must honour: a rolling energy estimate over normalised PCM
// frames with a latched has-spoken flag and a one-shot silence trigger. The
// server carries this as a pure library so the constants and the
// flush-then-grace ordering are pinned by tests in one place.
package capture

import (
	"time"

	"github.com/MrWong99/intervox/pkg/audio"
)

// Defaults for the detection contract.
const (
	// DefaultEnergyThreshold is the RMS level (over [0, 1]) above which a
	// frame counts as speech.
	DefaultEnergyThreshold = 0.01

	// DefaultSilenceWindow is how long energy must stay below the threshold,
	// after speech was heard, before capture auto-terminates.
	DefaultSilenceWindow = 3000 * time.Millisecond

	// MinGracePeriod is the shortest allowed wait between flushing the final
	// audio slice and signalling end-of-answer, so in-flight chunks arrive
	// in order.
	MinGracePeriod = 300 * time.Millisecond
)

// Decision is returned exactly once per recording, when the silence window
// elapses. FlushFinalSlice must be acted on before SignalEndAnswer, and the
// end-of-answer signal must wait at least Grace after the flush.
type Decision struct {
	FlushFinalSlice bool
	SignalEndAnswer bool
	Grace           time.Duration
}

// Detector tracks speech energy over one recording and decides when the
// answer has ended. Not safe for concurrent use; feed frames from a single
// goroutine in arrival order.
type Detector struct {
	threshold float64
	window    time.Duration
	grace     time.Duration

	hasSpoken    bool
	silenceSince time.Time
	inSilence    bool
	fired        bool
}

// Option customises a [Detector].
type Option func(*Detector)

// WithThreshold overrides the energy threshold.
func WithThreshold(v float64) Option {
	return func(d *Detector) { d.threshold = v }
}

// WithSilenceWindow overrides the silence window.
func WithSilenceWindow(w time.Duration) Option {
	return func(d *Detector) { d.window = w }
}

// WithGrace sets the grace period. Values below [MinGracePeriod] are raised
// to it.
func WithGrace(g time.Duration) Option {
	return func(d *Detector) {
		if g < MinGracePeriod {
			g = MinGracePeriod
		}
		d.grace = g
	}
}

// NewDetector creates a detector with the default contract values.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		threshold: DefaultEnergyThreshold,
		window:    DefaultSilenceWindow,
		grace:     MinGracePeriod,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HasSpoken reports whether speech has been heard yet. Latched: once true it
// stays true for the lifetime of the detector.
func (d *Detector) HasSpoken() bool { return d.hasSpoken }

// Feed processes one PCM frame observed at now and returns a non-nil
// Decision exactly once, when the silence window elapses after speech.
// Further frames after that return nil.
func (d *Detector) Feed(frame []byte, now time.Time) *Decision {
	return d.FeedEnergy(audio.RMS(frame), now)
}

// FeedEnergy is [Detector.Feed] for callers that already computed the frame
// energy, normalised to [0, 1].
func (d *Detector) FeedEnergy(energy float64, now time.Time) *Decision {
	if d.fired {
		return nil
	}

	if energy > d.threshold {
		d.hasSpoken = true
		d.inSilence = false
		return nil
	}

	if !d.hasSpoken {
		return nil
	}
	if !d.inSilence {
		d.inSilence = true
		d.silenceSince = now
		return nil
	}
	if now.Sub(d.silenceSince) < d.window {
		return nil
	}

	d.fired = true
	return &Decision{
		FlushFinalSlice: true,
		SignalEndAnswer: true,
		Grace:           d.grace,
	}
}
