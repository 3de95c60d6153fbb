package config

import (
	"os"
	"path/filepath"
	"testing"

	"salonvox/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
dialog:
  fallback_number: "+15140000000"
  base_url: https://book.example.com
scheduling:
  provider: calendly
  calendly:
    token: secret-token
`

func TestLoad(t *testing.T) {
	t.Run("AppliesDefaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, minimalConfig))
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.API.Port)
		assert.Equal(t, "1", cfg.Dialog.CountryCode)
		assert.Equal(t, "https://api.calendly.com", cfg.Scheduling.Calendly.BaseURL)
		assert.Equal(t, "gemini-1.5-flash", cfg.Intent.Model)
		assert.Equal(t, 3, cfg.Intent.TimeoutSeconds)
		assert.Equal(t, "data/salonvox.db", cfg.Database.Path)
	})

	t.Run("ExpandsEnvironment", func(t *testing.T) {
		t.Setenv("TEST_CALENDLY_TOKEN", "from-env")

		cfg, err := Load(writeConfig(t, `
dialog:
  fallback_number: "+15140000000"
  base_url: https://book.example.com
scheduling:
  calendly:
    token: ${TEST_CALENDLY_TOKEN}
`))
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Scheduling.Calendly.Token)
	})

	t.Run("MissingFallbackNumber", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
dialog:
  base_url: https://book.example.com
scheduling:
  calendly:
    token: secret
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fallback number")
	})

	t.Run("MissingCalendlyToken", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
dialog:
  fallback_number: "+15140000000"
  base_url: https://book.example.com
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "calendly token")
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestValidateServices(t *testing.T) {
	valid := []models.Service{
		{Kind: models.ServiceManCut, Label: "la coupe homme", Keywords: []string{"homme"}},
		{Kind: models.ServiceWomanCut, Label: "la coupe femme", Keywords: []string{"femme"}},
	}
	assert.NoError(t, ValidateServices(valid))

	t.Run("DuplicateKind", func(t *testing.T) {
		dup := append(valid, models.Service{Kind: models.ServiceManCut, Label: "encore", Keywords: []string{"x"}})
		assert.ErrorContains(t, ValidateServices(dup), "duplicate")
	})

	t.Run("NoKeywords", func(t *testing.T) {
		bad := []models.Service{{Kind: models.ServiceManCut, Label: "la coupe homme"}}
		assert.ErrorContains(t, ValidateServices(bad), "keywords")
	})

	t.Run("InvalidKind", func(t *testing.T) {
		bad := []models.Service{{Kind: models.ServiceNone, Label: "aucun", Keywords: []string{"x"}}}
		assert.Error(t, ValidateServices(bad))
	})
}

func TestServiceByKind(t *testing.T) {
	cfg := &Config{Services: []models.Service{
		{Kind: models.ServiceManCut, Label: "la coupe homme", Keywords: []string{"homme"}, SchedulingHandle: "handle-man"},
	}}

	svc := cfg.ServiceByKind(models.ServiceManCut)
	require.NotNil(t, svc)
	assert.Equal(t, "handle-man", svc.SchedulingHandle)

	assert.Nil(t, cfg.ServiceByKind(models.ServiceWomanCut))
}
