package transcription

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rvasily/squadvoice/internal/audio"
	"github.com/rvasily/squadvoice/internal/config"
	"github.com/rvasily/squadvoice/pkg/logger"
)

// prompts bias the recognizer toward the expected language; they measurably
// reduce misrecognition of accented speech.
var languagePrompts = map[string]string{
	"en": "This is a conversation in English.",
	"ru": "Это разговор на русском языке.",
}

// OpenAIService transcribes utterances through the OpenAI audio API.
type OpenAIService struct {
	client oai.Client
	model  string
	logger *logger.Logger
}

// NewOpenAIService creates the ASR client from configuration. An empty
// configured key falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIService(cfg config.ASRConfig, log *logger.Logger) (*OpenAIService, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("asr api_key is required (set it in the config or export OPENAI_API_KEY)")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	client := oai.NewClient(
		option.WithAPIKey(key),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &OpenAIService{
		client: client,
		model:  cfg.Model,
		logger: log.Named("asr"),
	}, nil
}

// Transcribe implements Service. The utterance is serialized as WAV and
// submitted in one request. Returns (nil, nil) when the service recognizes
// nothing usable.
func (s *OpenAIService) Transcribe(ctx context.Context, u *audio.Utterance, language string) (*Transcript, error) {
	wav := audio.EncodeWAV(u.Samples, u.SampleRate)

	params := oai.AudioTranscriptionNewParams{
		Model: oai.AudioModel(s.model),
		File:  oai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
	}
	if language != "" {
		params.Language = oai.String(language)
	}
	if prompt, ok := languagePrompts[language]; ok {
		params.Prompt = oai.String(prompt)
	}

	started := time.Now()
	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	s.logger.Debug("Transcription completed",
		logger.Duration("audio", u.Duration()),
		logger.Duration("took", time.Since(started)),
		logger.Int("chars", len(text)))

	if text == "" || IsLikelyNoise(text) {
		return nil, nil
	}
	return &Transcript{
		Text:      text,
		Language:  language,
		Timestamp: u.End,
	}, nil
}
