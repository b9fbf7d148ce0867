package tajweed

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleIDs(rules []Rule) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

func TestDefault_Order(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{"izhhar", "idgham", "iqlab", "ikhfa", "qalqalah"}, ruleIDs(c.List()))
	assert.Equal(t, []string{"izhhar", "idgham", "iqlab", "qalqalah"}, ruleIDs(c.WithPattern()))
	assert.Equal(t, 5, c.Len())
}

func TestDefault_RuleLookup(t *testing.T) {
	c := Default()

	r, ok := c.Rule("iqlab")
	require.True(t, ok)
	assert.Equal(t, "Iqlab", r.Name)
	assert.True(t, r.HasPattern())

	r, ok = c.Rule("ikhfa")
	require.True(t, ok)
	assert.False(t, r.HasPattern())

	_, ok = c.Rule("missing")
	assert.False(t, ok)
}

func TestDefault_ExamplesMatchTheirRule(t *testing.T) {
	for _, r := range Default().WithPattern() {
		t.Run(r.ID, func(t *testing.T) {
			assert.NotEmpty(t, r.Pattern.FindString(r.Example), "example %q", r.Example)
		})
	}
}

func TestCatalog_ListIsACopy(t *testing.T) {
	c := Default()
	rules := c.List()
	rules[0].Name = "changed"

	r, _ := c.Rule(rules[0].ID)
	assert.NotEqual(t, "changed", r.Name)
}

func TestNewCatalog_Validation(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{"empty id", []Rule{{Name: "A"}}},
		{"empty name", []Rule{{ID: "a"}}},
		{"duplicate id", []Rule{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.rules...)
			require.Error(t, err)
		})
	}

	c, err := NewCatalog(Rule{ID: "a", Name: "A", Pattern: regexp.MustCompile(`a`)}, Rule{ID: "b", Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ruleIDs(c.WithPattern()))
}
