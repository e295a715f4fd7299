package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{DSN: "postgres://localhost/invoicescan"},
		OCR:      OCRConfig{Backends: []string{"tesseract"}},
		LLM:      LLMConfig{Provider: "openai"},
	}
}

func TestConfigCheck(t *testing.T) {
	require.NoError(t, validConfig().Check())

	noDSN := validConfig()
	noDSN.Database.DSN = ""
	assert.ErrorContains(t, noDSN.Check(), "DB_URL")

	noBackends := validConfig()
	noBackends.OCR.Backends = nil
	assert.ErrorContains(t, noBackends.Check(), "OCR_BACKENDS")

	noProvider := validConfig()
	noProvider.LLM.Provider = ""
	assert.ErrorContains(t, noProvider.Check(), "LLM_PROVIDER")
}

func TestConfigCheckValidateSectionIsData(t *testing.T) {
	cfg := validConfig()
	cfg.Validate = ValidateConfig{PriceDeviationWarn: 0.05, PriceDeviationHigh: 0.20}
	require.NoError(t, cfg.Check())
	assert.InDelta(t, 0.05, cfg.Validate.PriceDeviationWarn, 1e-9)
}
