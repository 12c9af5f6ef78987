package geo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"go.uber.org/zap"

	"pingguard/pkg/errors"
)

// ErrUnavailable is returned when no position can be produced: the source
// reported an error, the wait timed out, or no source is configured at all.
var ErrUnavailable = errors.Location("location unavailable")

// Position is a device fix, rounded for persistence and display.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Options mirror the device position API knobs: high-accuracy fix, bounded
// wait, and MaximumAge zero so no cached reading is ever accepted.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 0}
}

// Source is the device position API: asynchronous and callback-based. An
// implementation reports exactly once, to one of the two callbacks.
type Source interface {
	RequestPosition(opts Options, success func(Position), failure func(error))
}

// Service normalizes the callback-based source into a single-shot call: the
// caller suspends until a position arrives or the operation fails, without
// blocking any other goroutine. No automatic retry.
type Service struct {
	src  Source
	opts Options
	log  *zap.Logger
}

func NewService(src Source, opts Options, log *zap.Logger) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &Service{src: src, opts: opts, log: log}
}

// CurrentPosition requests one fresh fix. Coordinates are rounded to six
// decimal places, the precision used everywhere a position is persisted or
// displayed in full.
func (s *Service) CurrentPosition(ctx context.Context) (Position, error) {
	if s.src == nil {
		return Position{}, ErrUnavailable
	}

	type result struct {
		pos Position
		err error
	}
	// Buffered so a late callback never leaks the source's goroutine.
	ch := make(chan result, 1)

	s.src.RequestPosition(s.opts,
		func(pos Position) { ch <- result{pos: pos} },
		func(err error) { ch <- result{err: err} },
	)

	timer := time.NewTimer(s.opts.Timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Position{}, errors.Location("location request cancelled")
	case <-timer.C:
		s.log.Warn("position request timed out", zap.Duration("timeout", s.opts.Timeout))
		return Position{}, ErrUnavailable
	case r := <-ch:
		if r.err != nil {
			s.log.Warn("position request failed", zap.Error(r.err))
			return Position{}, ErrUnavailable
		}
		return r.pos.Round(6), nil
	}
}

// Round returns the position rounded to the given number of decimal places.
func (p Position) Round(decimals int) Position {
	f := math.Pow10(decimals)
	return Position{
		Latitude:  math.Round(p.Latitude*f) / f,
		Longitude: math.Round(p.Longitude*f) / f,
	}
}

// String is the full six-decimal form.
func (p Position) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Latitude, p.Longitude)
}

// Compact is the four-decimal form used in list summaries.
func (p Position) Compact() string {
	return fmt.Sprintf("%.4f, %.4f", p.Latitude, p.Longitude)
}

// MapEmbedURL builds the external map view for a position. The map is a pure
// collaborator: the client passes coordinates and renders nothing itself.
func MapEmbedURL(p Position) string {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude))
	q.Set("output", "embed")
	return "https://www.google.com/maps?" + q.Encode()
}

// FixedSource reports a configured position, standing in for device GPS on
// hosts without one. A zero-value source reports capability absence.
type FixedSource struct {
	Lat, Lng float64
	Set      bool
}

func (f FixedSource) RequestPosition(_ Options, success func(Position), failure func(error)) {
	go func() {
		if !f.Set {
			failure(fmt.Errorf("no position source configured"))
			return
		}
		success(Position{Latitude: f.Lat, Longitude: f.Lng})
	}()
}
