package pipeline

import (
	"context"
	"fmt"
	"time"

	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/storage"
)

// FixtureStart is the first timestamp of the synthetic series.
var FixtureStart = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

const (
	fixtureDays    = 3
	fixtureCadence = 5 * time.Minute
	fixturePerDay  = int(24 * time.Hour / fixtureCadence)
)

// fixtureLevels are the quiet-sun values of the synthetic parameters.
var fixtureLevels = []struct {
	name  string
	level float64
}{
	{"proton_bulk_speed", 400},
	{"proton_density", 5},
	{"composite_flux", 1200},
	{"proton_thermal", 50},
	{"proton_xvelocity", -390},
	{"proton_yvelocity", 10},
	{"proton_zvelocity", 5},
	{"alpha_proton_ratio", 0.04},
	{"velocity_magnitude", 400},
}

// FixtureSeries returns three days of 5-minute samples. Every parameter is
// flat except proton_density, which jumps tenfold for five samples at 12:00
// on the first two days.
func FixtureSeries() []*domain.ParameterSample {
	samples := make([]*domain.ParameterSample, fixtureDays*fixturePerDay)
	for i := range samples {
		values := make(map[string]float64, len(fixtureLevels))
		for _, p := range fixtureLevels {
			values[p.name] = p.level
		}
		slot := i % fixturePerDay
		if i/fixturePerDay < 2 && slot >= 144 && slot < 149 {
			values["proton_density"] *= 10
		}
		samples[i] = &domain.ParameterSample{
			Time:   FixtureStart.Add(time.Duration(i) * fixtureCadence),
			Values: values,
		}
	}
	return samples
}

// FixtureCatalog returns three expected windows: one around each spike and
// one two months after the series ends.
func FixtureCatalog() []*domain.ExpectedWindow {
	far := FixtureStart.AddDate(0, 2, 0)
	return []*domain.ExpectedWindow{
		{
			ID:            "1",
			LaunchTime:    FixtureStart.Add(-36 * time.Hour),
			Speed:         1100,
			HaloFlag:      "IV",
			ExpectedStart: FixtureStart.Add(11 * time.Hour),
			ExpectedEnd:   FixtureStart.Add(13 * time.Hour),
		},
		{
			ID:            "2",
			LaunchTime:    FixtureStart.Add(-12 * time.Hour),
			Speed:         900,
			HaloFlag:      "III",
			ExpectedStart: FixtureStart.Add(35 * time.Hour),
			ExpectedEnd:   FixtureStart.Add(37 * time.Hour),
		},
		{
			ID:            "3",
			LaunchTime:    far.Add(-48 * time.Hour),
			Speed:         700,
			HaloFlag:      "II",
			ExpectedStart: far,
			ExpectedEnd:   far.Add(time.Hour),
		},
	}
}

// LoadFixtures populates stores with the synthetic dataset.
func LoadFixtures(ctx context.Context, samples storage.SampleStore, catalog storage.CatalogStore) error {
	if err := samples.InsertBulk(ctx, FixtureSeries()); err != nil {
		return fmt.Errorf("load fixture samples: %w", err)
	}
	if err := catalog.InsertBulk(ctx, FixtureCatalog()); err != nil {
		return fmt.Errorf("load fixture catalog: %w", err)
	}
	return nil
}
