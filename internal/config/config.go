package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration, loaded from a single
// TOML file at startup.
type Config struct {
	Logging    LoggingConfig   `toml:"logging"`
	Server     ServerConfig    `toml:"server"`
	Audio      AudioConfig     `toml:"audio"`
	Segmenter  SegmenterConfig `toml:"segmenter"`
	Pipeline   PipelineConfig  `toml:"pipeline"`
	ASR        ASRConfig       `toml:"asr"`
	Translator MTConfig        `toml:"translator"`
	Glossary   GlossaryConfig  `toml:"glossary"`
	Storage    StorageConfig   `toml:"storage"`
	ChangeLog  ChangeLogConfig `toml:"change_log"`
	Channels   []ChannelConfig `toml:"channels"`
}

// LoggingConfig controls the application logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig controls the local HTTP API.
type ServerConfig struct {
	Enabled            bool     `toml:"enabled"`
	Addr               string   `toml:"addr"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// AudioConfig describes the PCM format shared by all capture sources.
type AudioConfig struct {
	SampleRate int `toml:"sample_rate"`
	FrameMs    int `toml:"frame_ms"`
}

// SegmenterConfig holds the utterance segmentation policy. These are tuning
// parameters, not invariants; defaults match what worked in live sessions.
type SegmenterConfig struct {
	SilenceThreshold   float64 `toml:"silence_threshold"`     // peak amplitude below which a frame counts as silence
	MinUtteranceSec    float64 `toml:"min_utterance_sec"`     // don't emit segments shorter than this
	MaxUtteranceSec    float64 `toml:"max_utterance_sec"`     // force a split beyond this
	SilenceFrames      int     `toml:"silence_frames"`        // consecutive silent frames that end an utterance
	SplitSearchSec     float64 `toml:"split_search_sec"`      // window searched backwards for a silent split point
	TrailingPaddingSec float64 `toml:"trailing_padding_sec"`  // silence kept after speech offset
}

// PipelineConfig controls per-channel scheduling.
type PipelineConfig struct {
	PendingQueueSize   int `toml:"pending_queue_size"`   // bounded utterance queue per channel
	ShutdownTimeoutSec int `toml:"shutdown_timeout_sec"` // grace period for in-flight model calls
}

// ASRConfig configures the transcription service.
type ASRConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// MTConfig configures the translation service.
type MTConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GlossaryConfig points at the terminology rule files, one per target
// language, keyed by language code.
type GlossaryConfig struct {
	RuleFiles map[string]string `toml:"rule_files"`
}

// StorageConfig configures session transcript persistence.
type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// ChangeLogConfig configures the glossary change log sink.
type ChangeLogConfig struct {
	Dir string `toml:"dir"`
}

// ChannelConfig describes one audio source and its language pair.
type ChannelConfig struct {
	ID            string `toml:"id"`             // "game", "mic"
	SourceURL     string `toml:"source_url"`     // raw PCM16 stream endpoint
	SourceLang    string `toml:"source_lang"`    // "ru", "en"
	TargetLang    string `toml:"target_lang"`
	Transliterate bool   `toml:"transliterate"`  // romanize Cyrillic output for the overlay
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration populated with defaults for everything
// that has a sensible one. API keys and channel sources have no default.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8573",
		},
		Audio: AudioConfig{SampleRate: 16000, FrameMs: 64},
		Segmenter: SegmenterConfig{
			SilenceThreshold:   0.005,
			MinUtteranceSec:    2,
			MaxUtteranceSec:    20,
			SilenceFrames:      10,
			SplitSearchSec:     4,
			TrailingPaddingSec: 0.3,
		},
		Pipeline: PipelineConfig{
			PendingQueueSize:   2,
			ShutdownTimeoutSec: 5,
		},
		ASR:        ASRConfig{Model: "whisper-1", TimeoutSeconds: 30},
		Translator: MTConfig{Model: "gpt-4o-mini", TimeoutSeconds: 20},
		Storage:    StorageConfig{Enabled: true, DBPath: "squadvoice.db"},
		ChangeLog:  ChangeLogConfig{Dir: "translation_logs"},
	}
}

// Validate checks cross-field consistency and required values.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.FrameMs <= 0 {
		return fmt.Errorf("audio.frame_ms must be positive, got %d", c.Audio.FrameMs)
	}
	if c.Segmenter.SilenceThreshold <= 0 || c.Segmenter.SilenceThreshold >= 1 {
		return fmt.Errorf("segmenter.silence_threshold must be in (0, 1), got %g", c.Segmenter.SilenceThreshold)
	}
	if c.Segmenter.MinUtteranceSec >= c.Segmenter.MaxUtteranceSec {
		return fmt.Errorf("segmenter.min_utterance_sec (%g) must be below max_utterance_sec (%g)",
			c.Segmenter.MinUtteranceSec, c.Segmenter.MaxUtteranceSec)
	}
	if c.Pipeline.PendingQueueSize < 1 {
		return fmt.Errorf("pipeline.pending_queue_size must be at least 1, got %d", c.Pipeline.PendingQueueSize)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("at least one channel must be configured")
	}
	seen := make(map[string]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.ID == "" {
			return fmt.Errorf("channel %d has no id", i)
		}
		if seen[ch.ID] {
			return fmt.Errorf("duplicate channel id %q", ch.ID)
		}
		seen[ch.ID] = true
		if ch.SourceLang == "" || ch.TargetLang == "" {
			return fmt.Errorf("channel %q must set source_lang and target_lang", ch.ID)
		}
		if ch.SourceLang == ch.TargetLang {
			return fmt.Errorf("channel %q has identical source and target language %q", ch.ID, ch.SourceLang)
		}
	}
	for lang, path := range c.Glossary.RuleFiles {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("glossary rule file for %q: %w", lang, err)
		}
	}
	return nil
}
