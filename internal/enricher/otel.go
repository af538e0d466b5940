package enricher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trailmark/routecapture/internal/enricher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
