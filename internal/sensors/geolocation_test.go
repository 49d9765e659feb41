package sensors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/orrery/model"
)

func TestLocateOnceDeliversFix(t *testing.T) {
	want := model.GeoPosition{Latitude: 50.45, Longitude: 30.52}
	var got model.GeoPosition

	done := LocateOnce(context.Background(), StaticLocator{Position: want}, time.Second, nil,
		func(pos model.GeoPosition) { got = pos },
		func(err error) { t.Errorf("unexpected failure: %v", err) },
	)
	<-done
	assert.Equal(t, want, got)
}

func TestLocateOnceReportsFailure(t *testing.T) {
	var got error
	done := LocateOnce(context.Background(), LocatorFunc(func(context.Context) (model.GeoPosition, error) {
		return model.GeoPosition{}, ErrNoFix
	}), time.Second, nil, func(model.GeoPosition) {
		t.Error("unexpected fix")
	}, func(err error) { got = err })
	<-done
	assert.ErrorIs(t, got, ErrNoFix)
}

func TestLocateOnceTimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	var got error
	done := LocateOnce(context.Background(), LocatorFunc(func(ctx context.Context) (model.GeoPosition, error) {
		<-block
		return model.GeoPosition{}, nil
	}), 10*time.Millisecond, nil, func(model.GeoPosition) {
		t.Error("unexpected fix")
	}, func(err error) { got = err })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lookup did not time out")
	}
	require.Error(t, got)
	assert.True(t, errors.Is(got, context.DeadlineExceeded))
}

func TestLocateOnceCancelledIsSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := LocateOnce(ctx, StaticLocator{}, time.Second, nil,
		func(model.GeoPosition) { t.Error("unexpected fix") },
		func(error) { t.Error("unexpected failure") },
	)
	<-done
}

func TestLocateOnceNilLocator(t *testing.T) {
	<-LocateOnce(context.Background(), nil, time.Second, nil, nil, nil)
}
