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

// Package patterns holds the named regex pattern bank the REGEX
// strategy applies to sampled values, optionally gated by an
// expr-lang/expr condition over the sample's basic stats.
package patterns

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

// Pattern is one named entry of the bank: a compiled regex, the PII
// type it signals, and its base confidence score.
type Pattern struct {
	Name      string
	PiiType   string
	BaseScore float64
	Condition string

	re      *regexp.Regexp
	program *vm.Program
}

// Match reports whether value satisfies the pattern's regex.
func (p *Pattern) Match(value string) bool {
	return p.re.MatchString(value)
}

// Applies reports whether the pattern's optional gating condition holds
// for the given sample-level environment (e.g. {"nonNullRatio": 0.9}).
// A pattern without a condition always applies, and so does one whose
// condition fails to evaluate; a condition yielding a non-bool does not.
func (p *Pattern) Applies(env map[string]interface{}) bool {
	if p.program == nil {
		return true
	}
	out, err := expr.Run(p.program, env)
	if err != nil {
		return true
	}
	ok, _ := out.(bool)
	return ok
}

// rawPattern is the YAML-decodable shape of one bank entry.
type rawPattern struct {
	Name      string  `yaml:"name"`
	Regex     string  `yaml:"regex"`
	PiiType   string  `yaml:"pii_type"`
	BaseScore float64 `yaml:"base_score"`
	Condition string  `yaml:"condition,omitempty"`
}

// Bank is an ordered, named collection of Patterns.
type Bank struct {
	patterns []*Pattern
}

// Patterns returns the bank's entries in load order.
func (b *Bank) Patterns() []*Pattern {
	return b.patterns
}

// LoadYAML parses a pattern-bank document of the form:
//
//	patterns:
//	  - name: EMAIL_RFC5322
//	    regex: '...'
//	    pii_type: EMAIL
//	    base_score: 0.9
func LoadYAML(data []byte) (*Bank, error) {
	var doc struct {
		Patterns []rawPattern `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing pattern bank: %w", err)
	}
	bank := &Bank{}
	for _, rp := range doc.Patterns {
		p, err := compile(rp)
		if err != nil {
			return nil, err
		}
		bank.patterns = append(bank.patterns, p)
	}
	return bank, nil
}

func compile(rp rawPattern) (*Pattern, error) {
	re, err := regexp.Compile(rp.Regex)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %s: %w", rp.Name, err)
	}
	p := &Pattern{
		Name:      rp.Name,
		PiiType:   rp.PiiType,
		BaseScore: rp.BaseScore,
		Condition: rp.Condition,
		re:        re,
	}
	if rp.Condition != "" {
		program, err := expr.Compile(rp.Condition, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compiling condition for %s: %w", rp.Name, err)
		}
		p.program = program
	}
	return p, nil
}

// Default returns the bank seeded with the seven canonical entries
// spec.md §6 names as required for testable behavior.
func Default() *Bank {
	bank, err := LoadYAML([]byte(defaultBankYAML))
	if err != nil {
		// The embedded document is a compile-time constant; a failure
		// here means the canonical bank itself is malformed.
		panic(fmt.Sprintf("default pattern bank failed to load: %v", err))
	}
	return bank
}

const defaultBankYAML = `
patterns:
  - name: EMAIL_RFC5322
    regex: '^[a-zA-Z0-9.!#$%&''*+/=?^_{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$'
    pii_type: EMAIL
    base_score: 0.9
  - name: US_SSN
    regex: '^\d{3}-\d{2}-\d{4}$'
    pii_type: SSN
    base_score: 0.95
  - name: US_PHONE
    regex: '^\+?1?[-. ]?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}$'
    pii_type: PHONE_NUMBER
    base_score: 0.75
  - name: CREDIT_CARD
    regex: '^(?:\d{4}[- ]?){3}\d{4}$'
    pii_type: CREDIT_CARD
    base_score: 0.9
  - name: IP_ADDRESS
    regex: '^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$'
    pii_type: IP_ADDRESS
    base_score: 0.6
  - name: IBAN
    regex: '^[A-Z]{2}\d{2}[A-Z0-9]{1,30}$'
    pii_type: IBAN
    base_score: 0.85
  - name: DATE_FORMAT
    regex: '^\d{4}-\d{2}-\d{2}$'
    pii_type: DATE_OF_BIRTH
    base_score: 0.4
`
