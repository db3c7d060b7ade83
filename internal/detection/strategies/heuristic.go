package strategies

import (
	"context"
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// heuristicRule is one entry of the name/comment keyword table (spec.md
// §4.3): a regex, the PII type it signals, its base score when matched
// on the column name, and a human description surfaced in logs.
type heuristicRule struct {
	Name        string
	Pattern     *regexp.Regexp
	PiiType     string
	BaseScore   float64
	Description string
}

// keywordRegexp compiles pattern with every \b replaced by a separator
// class, so "_" and "-" delimit keywords the way spaces do: `\b(zip)\b`
// matches "zip_code" and "home-zip" but not "zipper".
func keywordRegexp(pattern string) *regexp.Regexp {
	return regexp.MustCompile(strings.ReplaceAll(pattern, `\b`, `(?:^|$|[^a-zA-Z0-9])`))
}

func rule(name, pattern, piiType string, baseScore float64, description string) heuristicRule {
	return heuristicRule{
		Name:        name,
		Pattern:     keywordRegexp(pattern),
		PiiType:     piiType,
		BaseScore:   baseScore,
		Description: description,
	}
}

// defaultRules is the canonical name/comment table. Order matters only
// in that the first match wins per column (spec.md §4.3).
var defaultRules = []heuristicRule{
	rule("email", `(?i)\b(e[-_]?mail)\b`, "EMAIL", 0.85, "email address column"),
	rule("ssn", `(?i)\b(ssn|social[-_ ]?security)\b`, "SSN", 0.9, "US social security number"),
	rule("phone", `(?i)\b(phone|mobile|cell|tel)\b`, "PHONE_NUMBER", 0.75, "telephone number"),
	rule("credit_card", `(?i)\b(cc[-_]?num|card[-_]?num|credit[-_]?card)\b`, "CREDIT_CARD", 0.9, "payment card number"),
	rule("ip", `(?i)\b(ip[-_]?addr(ess)?)\b`, "IP_ADDRESS", 0.6, "IP address"),
	rule("address", `(?i)\b(address|street|addr)\b`, "ADDRESS", 0.7, "postal address"),
	rule("name", `(?i)\b(first[-_]?name|last[-_]?name|full[-_]?name|surname)\b`, "NAME", 0.7, "personal name"),
	rule("dob", `(?i)\b(dob|date[-_]?of[-_]?birth|birth[-_]?date)\b`, "DATE_OF_BIRTH", 0.85, "date of birth"),
	rule("passport", `(?i)\b(passport)\b`, "PASSPORT", 0.9, "passport number"),
	rule("iban", `(?i)\b(iban|account[-_]?number|acct[-_]?no)\b`, "IBAN", 0.75, "bank account identifier"),
}

// HeuristicStrategy matches column names and comments against a fixed
// keyword table, then falls back to a bleve in-memory index over the
// same table to recover fuzzy matches the literal regexes miss (e.g. a
// misspelled or abbreviated column name) at a discounted confidence.
type HeuristicStrategy struct {
	rules []heuristicRule
	index bleve.Index
	log   logger.Logger
}

// NewHeuristicStrategy builds the strategy and its fuzzy-recall index
// from the default rule table.
func NewHeuristicStrategy() (*HeuristicStrategy, error) {
	mapping := bleve.NewIndexMapping()
	index, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}
	for _, r := range defaultRules {
		doc := map[string]string{"description": r.Description, "piiType": r.PiiType}
		if err := index.Index(r.Name, doc); err != nil {
			return nil, err
		}
	}
	return &HeuristicStrategy{rules: defaultRules, index: index, log: logger.NewLogger("strategy.heuristic")}, nil
}

func (s *HeuristicStrategy) Name() models.StrategyName { return models.StrategyHeuristic }

// Detect matches the column's name first, then its comment, against
// the rule table; the first match wins (no duplicate candidates per
// pattern). A comment-only match is discounted to 0.8*baseScore. When
// no literal rule matches, a fuzzy bleve lookup over the column name
// may still surface a low-confidence candidate.
func (s *HeuristicStrategy) Detect(_ context.Context, column *models.Column, _ *models.SampleData) ([]models.PiiCandidate, error) {
	for _, r := range s.rules {
		if r.Pattern.MatchString(column.Name) {
			return []models.PiiCandidate{{
				ColumnRef:  column,
				PiiType:    r.PiiType,
				Confidence: r.BaseScore,
				Strategy:   models.StrategyHeuristic,
				Evidence:   "name matched " + r.Name + ": " + r.Description,
			}}, nil
		}
	}
	for _, r := range s.rules {
		if column.Comments != "" && r.Pattern.MatchString(column.Comments) {
			return []models.PiiCandidate{{
				ColumnRef:  column,
				PiiType:    r.PiiType,
				Confidence: 0.8 * r.BaseScore,
				Strategy:   models.StrategyHeuristic,
				Evidence:   "comment matched " + r.Name + ": " + r.Description,
			}}, nil
		}
	}
	return s.fuzzyDetect(column)
}

// fuzzyDetect recovers matches the literal rule table missed by
// querying the bleve index with the column name as free text.
func (s *HeuristicStrategy) fuzzyDetect(column *models.Column) ([]models.PiiCandidate, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(column.Name))
	req.Size = 1
	req.Fields = []string{"piiType", "description"}
	result, err := s.index.Search(req)
	if err != nil {
		s.log.WithField("column", column.QualifiedName()).Warnf("fuzzy heuristic lookup failed: %v", err)
		return nil, nil
	}
	if len(result.Hits) == 0 || result.Hits[0].Score <= 0 {
		return nil, nil
	}
	hit := result.Hits[0]
	piiType, _ := hit.Fields["piiType"].(string)
	if piiType == "" {
		return nil, nil
	}
	return []models.PiiCandidate{{
		ColumnRef:  column,
		PiiType:    piiType,
		Confidence: 0.4,
		Strategy:   models.StrategyHeuristic,
		Evidence:   "fuzzy name match via keyword index",
	}}, nil
}
