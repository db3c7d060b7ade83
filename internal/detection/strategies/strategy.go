// Copyright © 2024 KubeStack-AI Authors
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

// Package strategies implements the closed set of PII detection
// variants (spec.md §4.3, §9 "Inheritance of strategy base classes"):
// HEURISTIC, REGEX, NER and QI all live here; the NER strategy wraps an
// interfaces.NerClient, whose HTTP/circuit-breaker client lives in the
// sibling ner package. Each variant satisfies the single Strategy
// capability below; the pipeline holds one field per variant instead
// of a class hierarchy.
package strategies

import (
	"context"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// Strategy is the one capability every detection variant exposes.
type Strategy interface {
	Name() models.StrategyName
	Detect(ctx context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error)
}
