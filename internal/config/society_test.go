package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSocietyConfigIsValid(t *testing.T) {
	assert.NoError(t, validateSocietyConfig(DefaultSocietyConfig()))
}

func TestValidateSocietyConfigRejectsBadPlans(t *testing.T) {
	cfg := DefaultSocietyConfig()
	cfg.Dues.Plans = append(cfg.Dues.Plans, DuesPlan{Name: "broken", Years: 0})
	assert.Error(t, validateSocietyConfig(cfg))

	cfg = DefaultSocietyConfig()
	cfg.Dues.Plans = nil
	assert.Error(t, validateSocietyConfig(cfg))
}

func TestPlanLookupIsCaseInsensitive(t *testing.T) {
	cfg := DefaultSocietyConfig()

	plan, ok := cfg.Plan(" Student ")
	assert.True(t, ok)
	assert.Equal(t, 1, plan.Years)

	_, ok = cfg.Plan("honorary")
	assert.False(t, ok)
}

func TestStaticHolderReturnsStoredConfig(t *testing.T) {
	cfg := DefaultSocietyConfig()
	cfg.Organisers = []string{"organisers@humesociety.org"}

	holder := NewStaticSocietyConfigHolder(cfg)
	assert.Equal(t, []string{"organisers@humesociety.org"}, holder.Get().Organisers)
}
