package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		DefaultCodeLength:            7,
		MaxURLLength:                 2048,
		CustomAliasMinLength:         3,
		CustomAliasMaxLength:         50,
		RateLimit:                    100,
		AnalyticsConsumerBatchSize:   100,
		AnalyticsConsumerMaxInFlight: 5,
		AdminAPIKey:                  "secret",
	}
}

func TestConfig_Validate_AcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RejectsCodeLengthOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultCodeLength = 3
	assert.Error(t, cfg.Validate())

	cfg.DefaultCodeLength = 17
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsEmptyAdminKey(t *testing.T) {
	cfg := validConfig()
	cfg.AdminAPIKey = ""
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsInvertedAliasBounds(t *testing.T) {
	cfg := validConfig()
	cfg.CustomAliasMinLength = 60
	cfg.CustomAliasMaxLength = 50
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsNonPositiveThroughput(t *testing.T) {
	cfg := validConfig()
	cfg.AnalyticsConsumerMaxInFlight = 0
	assert.Error(t, cfg.Validate())
}
