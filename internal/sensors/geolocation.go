package sensors

import (
	"context"
	"errors"
	"time"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

// ErrNoFix is returned by locators that have no position to report.
var ErrNoFix = errors.New("geolocation unavailable")

// Locator performs a best-effort position lookup.
type Locator interface {
	Locate(ctx context.Context) (model.GeoPosition, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (model.GeoPosition, error)

func (f LocatorFunc) Locate(ctx context.Context) (model.GeoPosition, error) { return f(ctx) }

// StaticLocator always reports the same fix, e.g. one given on the command
// line.
type StaticLocator struct {
	Position model.GeoPosition
}

func (s StaticLocator) Locate(ctx context.Context) (model.GeoPosition, error) {
	if err := ctx.Err(); err != nil {
		return model.GeoPosition{}, err
	}
	return s.Position, nil
}

// LocateOnce runs a single lookup in the background bounded by timeout.
// Exactly one of onFix or onFailure is called, from the lookup goroutine,
// unless ctx is cancelled first. The returned channel closes when the lookup
// goroutine has exited.
func LocateOnce(
	ctx context.Context,
	locator Locator,
	timeout time.Duration,
	log logging.Logger,
	onFix func(model.GeoPosition),
	onFailure func(error),
) <-chan struct{} {
	done := make(chan struct{})
	if log == nil {
		log = logging.Noop()
	}
	if locator == nil {
		close(done)
		return done
	}
	if onFailure == nil {
		onFailure = func(error) {}
	}

	go func() {
		defer close(done)

		lookupCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		type result struct {
			pos model.GeoPosition
			err error
		}
		results := make(chan result, 1)
		go func() {
			pos, err := locator.Locate(lookupCtx)
			results <- result{pos: pos, err: err}
		}()

		var res result
		select {
		case res = <-results:
		case <-lookupCtx.Done():
			res.err = lookupCtx.Err()
		}

		if ctx.Err() != nil {
			return
		}
		if res.err != nil {
			log.Error(ctx, "geolocation failed", logging.Err(res.err))
			onFailure(res.err)
			return
		}
		log.Info(ctx, "geolocation fix",
			logging.Float("latitude", res.pos.Latitude),
			logging.Float("longitude", res.pos.Longitude),
		)
		if onFix != nil {
			onFix(res.pos)
		}
	}()
	return done
}
