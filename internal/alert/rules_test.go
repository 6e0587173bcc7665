package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SeedDefaults(t *testing.T) {
	s := newTestStore(nil)

	assert.Equal(t, 2, s.SeedDefaults())
	assert.Equal(t, 0, s.SeedDefaults())

	rules := s.Rules()
	require.Len(t, rules, 2)

	assert.Equal(t, "Large Price Drop", rules[0].Name)
	assert.Equal(t, TypePrice, rules[0].Type)
	assert.True(t, rules[0].Active)
	assert.Equal(t, testNow.UnixMilli(), rules[0].CreatedAt)

	assert.Equal(t, "High Gas Prices", rules[1].Name)
	assert.Equal(t, TypeGas, rules[1].Type)
	assert.Equal(t, "ethereum", rules[1].Conditions.String("network"))
}

func TestStore_AddRule(t *testing.T) {
	s := newTestStore(nil)

	rule := s.AddRule(NewRule{
		Type:       TypePortfolio,
		Name:       "Portfolio floor",
		Conditions: Conditions{"threshold": 10000},
		Active:     true,
	})

	assert.Equal(t, "id-1", rule.ID)
	assert.Equal(t, testNow.UnixMilli(), rule.CreatedAt)

	got, ok := s.Rule(rule.ID)
	require.True(t, ok)
	assert.Equal(t, rule, got)
}

func TestStore_UpdateRule(t *testing.T) {
	s := newTestStore(nil)
	s.SeedDefaults()

	name := "Very High Gas"
	active := false
	updated, ok := s.UpdateRule(DefaultGasHighRuleID, RuleUpdate{
		Name:       &name,
		Active:     &active,
		Conditions: Conditions{"threshold": 80.0},
	})
	require.True(t, ok)

	assert.Equal(t, name, updated.Name)
	assert.False(t, updated.Active)

	threshold, _ := updated.Conditions.Number("threshold")
	assert.Equal(t, 80.0, threshold)
	assert.Equal(t, "ethereum", updated.Conditions.String("network"), "keys absent from the update are preserved")

	stored, _ := s.Rule(DefaultGasHighRuleID)
	assert.Equal(t, updated, stored)
}

func TestStore_UpdateRule_OnlyActive(t *testing.T) {
	s := newTestStore(nil)
	s.SeedDefaults()

	active := false
	updated, ok := s.UpdateRule(DefaultPriceDropRuleID, RuleUpdate{Active: &active})
	require.True(t, ok)

	assert.Equal(t, "Large Price Drop", updated.Name)
	assert.Equal(t, "24h", updated.Conditions.String("timeWindow"))
	assert.Empty(t, s.ActiveRules(TypePrice))
}

func TestStore_UpdateRule_Unknown(t *testing.T) {
	s := newTestStore(nil)
	s.SeedDefaults()
	before := s.Rules()

	_, ok := s.UpdateRule("missing", RuleUpdate{Conditions: Conditions{"threshold": 1}})

	assert.False(t, ok)
	assert.Equal(t, before, s.Rules())
}

func TestStore_DeleteRule(t *testing.T) {
	s := newTestStore(nil)
	s.SeedDefaults()

	assert.True(t, s.DeleteRule(DefaultPriceDropRuleID))
	assert.False(t, s.DeleteRule(DefaultPriceDropRuleID))

	rules := s.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, DefaultGasHighRuleID, rules[0].ID)
}

func TestStore_ActiveRules(t *testing.T) {
	s := newTestStore(nil)
	s.AddRule(NewRule{Type: TypeYield, Name: "on", Conditions: Conditions{"minAPY": 5}, Active: true})
	s.AddRule(NewRule{Type: TypeYield, Name: "off", Conditions: Conditions{"minAPY": 5}, Active: false})
	s.AddRule(NewRule{Type: TypeGas, Name: "gas", Conditions: Conditions{"threshold": 5}, Active: true})

	rules := s.ActiveRules(TypeYield)
	require.Len(t, rules, 1)
	assert.Equal(t, "on", rules[0].Name)
}

func TestConditions_Number(t *testing.T) {
	c := Conditions{
		"float":  1.5,
		"int":    3,
		"string": "4.25",
		"bad":    "abc",
		"nil":    nil,
		"bool":   true,
		"inf":    "Inf",
		"neginf": "-Inf",
		"nan":    "NaN",
	}

	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{"float", 1.5, true},
		{"int", 3, true},
		{"string", 4.25, true},
		{"bad", 0, false},
		{"nil", 0, false},
		{"bool", 0, false},
		{"missing", 0, false},
		{"inf", 0, false},
		{"neginf", 0, false},
		{"nan", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := c.Number(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditions_NonFinite(t *testing.T) {
	c := Conditions{
		"threshold":   "Inf",
		"minAPY":      "-inf",
		"targetPrice": "NaN",
		"network":     "ethereum",
		"ok":          50,
	}

	assert.Equal(t, []string{"minAPY", "targetPrice", "threshold"}, c.NonFinite())
	assert.Empty(t, Conditions{"threshold": 50}.NonFinite())
}
