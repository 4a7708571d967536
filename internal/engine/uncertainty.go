// internal/engine/uncertainty.go
package engine

// BandStrategy turns a point forecast into a confidence interval. The engine
// never computes a band inline so a model-derived uncertainty source can
// replace the fixed-percentage proxy without touching the decision logic.
type BandStrategy interface {
	Band(pointEstimate float64) (low, high float64)
}

// RelativeBand is the fixed relative-uncertainty proxy: the standard
// deviation is Pct of the point estimate and the band spans Z standard
// deviations each way. It is not a statistically derived interval.
type RelativeBand struct {
	Pct float64
	Z   float64
}

// DefaultBand is the production band: ±1.96 × (estimate × 0.15).
var DefaultBand = RelativeBand{Pct: 0.15, Z: 1.96}

func (b RelativeBand) Band(pointEstimate float64) (float64, float64) {
	spread := b.Z * (pointEstimate * b.Pct)
	return pointEstimate - spread, pointEstimate + spread
}
