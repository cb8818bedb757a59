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

package server

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/lmnr-ai/query-engine/internal/telemetry"
)

const (
	validateCountName  = "queryengine.server.validate.count"
	jsonToSQLCountName = "queryengine.server.json_to_sql.count"
	sqlToJSONCountName = "queryengine.server.sql_to_json.count"
)

// ServerMetrics defines the custom server metrics for the query engine.
type ServerMetrics struct {
	meter     metric.Meter
	Validate  metric.Int64Counter
	JsonToSql metric.Int64Counter
	SqlToJson metric.Int64Counter
}

// CreateCustomMetrics creates all the custom metrics for the server,
// using the shared package-global meter (see internal/telemetry.SetMeter).
func CreateCustomMetrics(versionString string) (*ServerMetrics, error) {
	telemetry.SetMeter(versionString)
	meter := telemetry.Meter()
	validate, err := meter.Int64Counter(
		validateCountName,
		metric.WithDescription("Number of ValidateQuery API calls."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s metric: %w", validateCountName, err)
	}

	jsonToSQL, err := meter.Int64Counter(
		jsonToSQLCountName,
		metric.WithDescription("Number of JsonToSql API calls."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s metric: %w", jsonToSQLCountName, err)
	}

	sqlToJSON, err := meter.Int64Counter(
		sqlToJSONCountName,
		metric.WithDescription("Number of SqlToJson API calls."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s metric: %w", sqlToJSONCountName, err)
	}

	metrics := &ServerMetrics{
		meter:     meter,
		Validate:  validate,
		JsonToSql: jsonToSQL,
		SqlToJson: sqlToJSON,
	}
	return metrics, nil
}
