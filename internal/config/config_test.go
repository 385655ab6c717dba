package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfigTOML() string {
	return `
[logging]
level = "debug"

[audio]
sample_rate = 16000
frame_ms = 64

[[channels]]
id = "game"
source_url = "http://127.0.0.1:9100/game"
source_lang = "ru"
target_lang = "en"

[[channels]]
id = "mic"
source_url = "http://127.0.0.1:9101/mic"
source_lang = "en"
target_lang = "ru"
transliterate = true
`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigTOML()))
	require.NoError(t, err)

	// Explicit values win, everything else keeps its default.
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 0.005, cfg.Segmenter.SilenceThreshold)
	assert.Equal(t, 2, cfg.Pipeline.PendingQueueSize)
	assert.Equal(t, "whisper-1", cfg.ASR.Model)
	require.Len(t, cfg.Channels, 2)
	assert.True(t, cfg.Channels[1].Transliterate)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Channels = []ChannelConfig{
			{ID: "game", SourceURL: "http://localhost/game", SourceLang: "ru", TargetLang: "en"},
		}
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("no channels", func(t *testing.T) {
		cfg := base()
		cfg.Channels = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate channel ids", func(t *testing.T) {
		cfg := base()
		cfg.Channels = append(cfg.Channels, cfg.Channels[0])
		assert.Error(t, cfg.Validate())
	})

	t.Run("same source and target language", func(t *testing.T) {
		cfg := base()
		cfg.Channels[0].TargetLang = "ru"
		assert.Error(t, cfg.Validate())
	})

	t.Run("min above max utterance duration", func(t *testing.T) {
		cfg := base()
		cfg.Segmenter.MinUtteranceSec = 30
		assert.Error(t, cfg.Validate())
	})

	t.Run("silence threshold out of range", func(t *testing.T) {
		cfg := base()
		cfg.Segmenter.SilenceThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero queue size", func(t *testing.T) {
		cfg := base()
		cfg.Pipeline.PendingQueueSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing glossary file", func(t *testing.T) {
		cfg := base()
		cfg.Glossary.RuleFiles = map[string]string{"en": filepath.Join(t.TempDir(), "gone.toml")}
		assert.Error(t, cfg.Validate())
	})
}
