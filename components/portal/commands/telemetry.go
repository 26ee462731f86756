package commands

import (
	"context"

	portal "github.com/goliatone/go-insurance/components/portal"
)

// Telemetry receives command outcomes, e.g. "portal.record.create".
type Telemetry = portal.Telemetry

type discardTelemetry struct{}

func (discardTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return discardTelemetry{}
	}
	return t
}
