package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.NER.URL = "http://ner.local"
	return cfg
}

func TestValidateAcceptsAWellFormedConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Detection.HeuristicThreshold = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresURLForHTTPProvider(t *testing.T) {
	cfg := Default() // NER.Provider == "http", NER.URL == ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresAPIKeyForOpenAIProvider(t *testing.T) {
	cfg := validConfig()
	cfg.NER.Provider = "openai"
	cfg.NER.URL = ""
	assert.Error(t, cfg.Validate())

	cfg.NER.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidateNoneProviderNeedsNeitherURLNorAPIKey(t *testing.T) {
	cfg := Default()
	cfg.NER.Provider = "none"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsEmptyDialectList(t *testing.T) {
	cfg := validConfig()
	cfg.Dialects.Recognized = nil
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMaxGroupSizeBelowMin(t *testing.T) {
	cfg := validConfig()
	cfg.QI.MinGroupSize = 5
	cfg.QI.MaxGroupSize = 2
	assert.Error(t, cfg.Validate())
}

func TestLoadWithExplicitNonexistentFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadWithNoConfigFilePresentFailsValidationOnBareDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	// Default()'s NER provider is "http" with an empty URL, so an
	// untouched default config never validates on its own.
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadReadsConfigFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	yamlContents := "ner:\n  provider: none\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "piiscan.yaml"), []byte(yamlContents), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.NER.Provider)
	assert.Equal(t, 0.7, cfg.Detection.HeuristicThreshold, "unspecified fields keep their defaults")
}
