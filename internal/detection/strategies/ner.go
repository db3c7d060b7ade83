package strategies

import (
	"context"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// labelToPiiType maps a NER backend's entity label to our PII type
// vocabulary; labels not in this table pass through unchanged so a
// custom backend's labels still surface as a candidate.
var labelToPiiType = map[string]string{
	"PERSON":       "NAME",
	"EMAIL":        "EMAIL",
	"PHONE":        "PHONE_NUMBER",
	"SSN":          "SSN",
	"CREDIT_CARD":  "CREDIT_CARD",
	"ADDRESS":      "ADDRESS",
	"DATE_OF_BIRTH": "DATE_OF_BIRTH",
	"LOCATION":     "ADDRESS",
}

// NERStrategy batches a column's non-null string samples to an
// external NerClient. The client itself (see internal/detection/ner)
// owns the circuit breaker/retry/timeout machinery; this strategy only
// maps the response onto PiiCandidates.
type NERStrategy struct {
	client     interfaces.NerClient
	maxSamples int
	log        logger.Logger
}

// NewNERStrategy builds the strategy over the given client.
func NewNERStrategy(client interfaces.NerClient, maxSamples int) *NERStrategy {
	if maxSamples <= 0 {
		maxSamples = 100
	}
	return &NERStrategy{client: client, maxSamples: maxSamples, log: logger.NewLogger("strategy.ner")}
}

func (s *NERStrategy) Name() models.StrategyName { return models.StrategyNER }

func (s *NERStrategy) Detect(ctx context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error) {
	if sample == nil {
		return nil, nil
	}
	texts := sample.NonNullStrings()
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > s.maxSamples {
		texts = texts[:s.maxSamples]
	}

	entities, err := s.client.Detect(ctx, column.QualifiedName(), texts)
	if err != nil {
		// A transport failure is logged and treated as "no candidates"
		// (spec.md §4.4): the pipeline continues. A call refused by an
		// open circuit does not reach here: the breaker middleware
		// returns no entities and no error for it.
		s.log.WithField("column", column.QualifiedName()).Warnf("ner strategy failed: %v", err)
		return nil, nil
	}

	best := make(map[string]models.PiiCandidate, len(entities))
	for _, e := range entities {
		piiType := e.Label
		if mapped, ok := labelToPiiType[e.Label]; ok {
			piiType = mapped
		}
		if existing, ok := best[piiType]; !ok || e.Score > existing.Confidence {
			best[piiType] = models.PiiCandidate{
				ColumnRef:  column,
				PiiType:    piiType,
				Confidence: e.Score,
				Strategy:   models.StrategyNER,
				Evidence:   "ner label " + e.Label,
			}
		}
	}

	candidates := make([]models.PiiCandidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	return candidates, nil
}
