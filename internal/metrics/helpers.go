package metrics

import (
	"strconv"
	"time"

	"github.com/GoSim-25-26J-441/ising-core/internal/ising"
	"github.com/GoSim-25-26J-441/ising-core/pkg/models"
)

// Telemetry metric names
const (
	MetricAttemptedFlips  = "attempted_flips"
	MetricAcceptedFlips   = "accepted_flips"
	MetricTraceSamples    = "trace_samples"
	MetricRunDurationMs   = "run_duration_ms"
	MetricAcceptanceRatio = "acceptance_ratio"
)

// TemperatureLabels creates the label set for one temperature
func TemperatureLabels(t float64) map[string]string {
	return map[string]string{
		"temperature": strconv.FormatFloat(t, 'f', 6, 64),
	}
}

// RecordResult records the telemetry of one finished simulation
func RecordResult(c *Collector, res *ising.Result, timestamp time.Time) {
	labels := TemperatureLabels(res.Params.Temperature)
	c.Record(MetricAttemptedFlips, float64(res.Attempted), timestamp, labels)
	c.Record(MetricAcceptedFlips, float64(res.Accepted), timestamp, labels)
	c.Record(MetricTraceSamples, float64(len(res.Trace)), timestamp, labels)
	c.Record(MetricRunDurationMs, float64(res.Duration.Microseconds())/1000.0, timestamp, labels)
	c.Record(MetricAcceptanceRatio, res.AcceptanceRatio(), timestamp, labels)
}

// ConvertToRunMetrics totals the collected telemetry across temperatures
func ConvertToRunMetrics(c *Collector) *models.RunMetrics {
	rm := &models.RunMetrics{}
	if agg := c.GetTotal(MetricAttemptedFlips); agg != nil {
		rm.AttemptedFlips = uint64(agg.Sum)
	}
	if agg := c.GetTotal(MetricAcceptedFlips); agg != nil {
		rm.AcceptedFlips = uint64(agg.Sum)
	}
	if agg := c.GetTotal(MetricTraceSamples); agg != nil {
		rm.TraceSamples = int64(agg.Sum)
	}
	if agg := c.GetTotal(MetricRunDurationMs); agg != nil {
		rm.DurationMs = agg.Sum
	}
	if rm.AttemptedFlips > 0 {
		rm.AcceptanceRatio = float64(rm.AcceptedFlips) / float64(rm.AttemptedFlips)
	}
	return rm
}
