// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package env

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sk-pkg/logger"

	"github.com/leoscope/leoscope/app/trigger"
)

// runHandler drives h.Exec and drains its Done/Error channels the same
// way app/pkg/schedule.Job.handler consumes a HandlerFunc, returning
// the first error observed, if any.
func runHandler(h interface {
	Exec(ctx context.Context)
	Error() <-chan error
	Done() <-chan struct{}
}) error {
	go h.Exec(context.Background())
	for {
		select {
		case err := <-h.Error():
			if err != nil {
				return err
			}
		case <-h.Done():
			return nil
		}
	}
}

type fakeSatelliteSource struct {
	elevation, azimuth float64
	err                error
}

func (f fakeSatelliteSource) Elevation(ctx context.Context) (float64, error) { return f.elevation, f.err }
func (f fakeSatelliteSource) Azimuth(ctx context.Context) (float64, error)   { return f.azimuth, f.err }

func TestSatelliteMonitorWritesSnapshot(t *testing.T) {
	l, err := logger.New()
	if err != nil {
		t.Fatal(err)
	}
	snap := trigger.NewSnapshot()
	h := NewSatelliteMonitor(l, fakeSatelliteSource{elevation: 42.5, azimuth: 180}, snap)

	if err := runHandler(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok := snap.Lookup("satellite.elevation")
	if !ok || v.Number != 42.5 {
		t.Fatalf("satellite.elevation = %+v, ok=%v", v, ok)
	}
	v, ok = snap.Lookup("satellite.azimuth")
	if !ok || v.Number != 180 {
		t.Fatalf("satellite.azimuth = %+v, ok=%v", v, ok)
	}
}

func TestSatelliteMonitorSourceError(t *testing.T) {
	l, _ := logger.New()
	snap := trigger.NewSnapshot()
	h := NewSatelliteMonitor(l, fakeSatelliteSource{err: errors.New("tracker offline")}, snap)

	if err := runHandler(h); err == nil {
		t.Fatal("expected error from failing source")
	}
	if _, ok := snap.Lookup("satellite.elevation"); ok {
		t.Fatal("snapshot must not be written on source failure")
	}
}

type fakeTelemetrySource struct {
	quality, temp float64
	err           error
}

func (f fakeTelemetrySource) LinkQuality(ctx context.Context) (float64, error)  { return f.quality, f.err }
func (f fakeTelemetrySource) TemperatureC(ctx context.Context) (float64, error) { return f.temp, f.err }

func TestTelemetryMonitorWritesSnapshot(t *testing.T) {
	l, _ := logger.New()
	snap := trigger.NewSnapshot()
	h := NewTelemetryMonitor(l, fakeTelemetrySource{quality: 30, temp: 21.3}, snap)

	if err := runHandler(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok := snap.Lookup("telemetry.link_quality_pct")
	if !ok || v.Number != 30 {
		t.Fatalf("telemetry.link_quality_pct = %+v, ok=%v", v, ok)
	}
	v, ok = snap.Lookup("telemetry.temperature_c")
	if !ok || v.Number != 21.3 {
		t.Fatalf("telemetry.temperature_c = %+v, ok=%v", v, ok)
	}
}

func TestWeatherMonitorWritesSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cloud_cover_pct":63.5,"wind_speed_mps":4.2,"condition":"overcast"}`))
	}))
	defer srv.Close()

	l, _ := logger.New()
	snap := trigger.NewSnapshot()
	h := NewWeatherMonitor(l, srv.URL, snap)

	if err := runHandler(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok := snap.Lookup("weather.cloud_cover_pct")
	if !ok || v.Number != 63.5 {
		t.Fatalf("weather.cloud_cover_pct = %+v, ok=%v", v, ok)
	}
	v, ok = snap.Lookup("weather.condition")
	if !ok || v.String != "overcast" {
		t.Fatalf("weather.condition = %+v, ok=%v", v, ok)
	}
}

func TestWeatherMonitorNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l, _ := logger.New()
	snap := trigger.NewSnapshot()
	h := NewWeatherMonitor(l, srv.URL, snap)

	if err := runHandler(h); err == nil {
		t.Fatal("expected error on non-200 weather API response")
	}
}
