// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const InstrumentationName = "github.com/lmnr-ai/query-engine/internal/opentel"

// meter is the package-global meter used by any component that wants a
// Meter without constructing its own, mirroring the trace subpackage's
// SetTracer/Tracer pair.
var meter = otel.Meter("")

// SetMeter sets the meter with instrumentation name and version.
func SetMeter(versionString string) {
	meter = otel.Meter(InstrumentationName, metric.WithInstrumentationVersion(versionString))
}

// Meter retrieves the query engine's meter.
func Meter() metric.Meter {
	return meter
}
