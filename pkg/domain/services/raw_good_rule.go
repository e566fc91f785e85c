package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

// DefaultRawGoodPattern matches the five digit numbering used for cuttable wire
const DefaultRawGoodPattern = `^\d{5}$`

// RawGoodRule decides whether a "Raw Good" BOM line is a terminal cuttable part.
// A line qualifies when its child number matches the numbering pattern or one of
// the prefixes, and its unit of measure is allowed (any unit when none are listed).
type RawGoodRule struct {
	numberPattern  *regexp.Regexp
	prefixes       []string
	unitsOfMeasure map[string]bool
}

// NewRawGoodRule creates a rule; an empty pattern disables the numbering convention
func NewRawGoodRule(pattern string, prefixes, unitsOfMeasure []string) (*RawGoodRule, error) {
	rule := &RawGoodRule{
		unitsOfMeasure: make(map[string]bool, len(unitsOfMeasure)),
	}
	if pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid raw good pattern %q: %w", pattern, err)
		}
		rule.numberPattern = compiled
	}
	for _, prefix := range prefixes {
		if p := strings.TrimSpace(prefix); p != "" {
			rule.prefixes = append(rule.prefixes, p)
		}
	}
	for _, uom := range unitsOfMeasure {
		if u := strings.ToLower(strings.TrimSpace(uom)); u != "" {
			rule.unitsOfMeasure[u] = true
		}
	}
	if rule.numberPattern == nil && len(rule.prefixes) == 0 {
		return nil, fmt.Errorf("raw good rule needs a numbering pattern or at least one prefix")
	}
	return rule, nil
}

// DefaultRawGoodRule matches five digit part numbers in any unit of measure
func DefaultRawGoodRule() *RawGoodRule {
	rule, err := NewRawGoodRule(DefaultRawGoodPattern, nil, nil)
	if err != nil {
		panic(err)
	}
	return rule
}

// IsRawGood checks a BOM line against the rule
func (r *RawGoodRule) IsRawGood(line entities.BOMLine) bool {
	if line.ItemType != entities.BOMItemRawGood {
		return false
	}
	return r.matchesNumber(line.ChildPN) && r.allowsUnit(line.UnitOfMeasure)
}

func (r *RawGoodRule) matchesNumber(pn entities.PartNumber) bool {
	number := strings.TrimSpace(string(pn))
	if r.numberPattern != nil && r.numberPattern.MatchString(number) {
		return true
	}
	for _, prefix := range r.prefixes {
		if strings.HasPrefix(number, prefix) {
			return true
		}
	}
	return false
}

func (r *RawGoodRule) allowsUnit(uom string) bool {
	if len(r.unitsOfMeasure) == 0 {
		return true
	}
	return r.unitsOfMeasure[strings.ToLower(strings.TrimSpace(uom))]
}
