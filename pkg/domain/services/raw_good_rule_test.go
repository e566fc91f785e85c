package services

import (
	"testing"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

func TestRawGoodRule_IsRawGood(t *testing.T) {
	prefixed, err := NewRawGoodRule("", []string{"W-"}, []string{"ft", "IN"})
	if err != nil {
		t.Fatalf("NewRawGoodRule failed: %v", err)
	}

	tests := []struct {
		name     string
		rule     *RawGoodRule
		line     entities.BOMLine
		expected bool
	}{
		{"five digit raw good", DefaultRawGoodRule(), entities.BOMLine{ChildPN: "50124", ItemType: entities.BOMItemRawGood}, true},
		{"six digit raw good", DefaultRawGoodRule(), entities.BOMLine{ChildPN: "501240", ItemType: entities.BOMItemRawGood}, false},
		{"five digit subassembly", DefaultRawGoodRule(), entities.BOMLine{ChildPN: "50124", ItemType: entities.BOMItemBillOfMaterial}, false},
		{"prefix with allowed unit", prefixed, entities.BOMLine{ChildPN: "W-18AWG", ItemType: entities.BOMItemRawGood, UnitOfMeasure: "in"}, true},
		{"prefix with other unit", prefixed, entities.BOMLine{ChildPN: "W-18AWG", ItemType: entities.BOMItemRawGood, UnitOfMeasure: "ea"}, false},
		{"no prefix match", prefixed, entities.BOMLine{ChildPN: "50124", ItemType: entities.BOMItemRawGood, UnitOfMeasure: "ft"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.IsRawGood(tt.line); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewRawGoodRule_Errors(t *testing.T) {
	if _, err := NewRawGoodRule("", nil, nil); err == nil {
		t.Error("Expected error for rule without pattern or prefix")
	}
	if _, err := NewRawGoodRule("[", nil, nil); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}
