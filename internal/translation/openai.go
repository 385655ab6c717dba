package translation

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/rvasily/squadvoice/internal/config"
	"github.com/rvasily/squadvoice/pkg/logger"
)

var languageNames = map[string]string{
	"en": "English",
	"ru": "Russian",
}

const systemPromptFmt = "You are a translator for live gaming voice chat. " +
	"Translate the user's message from %s to %s. " +
	"Keep it short and colloquial, preserve gaming slang, and output only the translation."

// OpenAIService translates text through the OpenAI chat completions API.
type OpenAIService struct {
	client oai.Client
	model  string
	logger *logger.Logger
}

// NewOpenAIService creates the MT client from configuration. An empty
// configured key falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIService(cfg config.MTConfig, log *logger.Logger) (*OpenAIService, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("translator api_key is required (set it in the config or export OPENAI_API_KEY)")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	client := oai.NewClient(
		option.WithAPIKey(key),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &OpenAIService{
		client: client,
		model:  cfg.Model,
		logger: log.Named("translator"),
	}, nil
}

// Translate implements Service. Failures are wrapped as *Error so the
// pipeline can distinguish them from cancellation.
func (s *OpenAIService) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(fmt.Sprintf(systemPromptFmt, langName(sourceLang), langName(targetLang))),
			oai.UserMessage(text),
		},
	}

	started := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &Error{SourceLang: sourceLang, TargetLang: targetLang, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{SourceLang: sourceLang, TargetLang: targetLang,
			Err: fmt.Errorf("empty choices in response")}
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	s.logger.Debug("Translation completed",
		logger.String("pair", sourceLang+"->"+targetLang),
		logger.Duration("took", time.Since(started)))

	if out == "" {
		return "", &Error{SourceLang: sourceLang, TargetLang: targetLang,
			Err: fmt.Errorf("model returned empty translation")}
	}
	return out, nil
}

func langName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
