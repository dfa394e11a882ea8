package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Question is one generated multiple-choice item. CorrectAnswer is always
// one of Options.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// OptionCount is the number of choices every generated question carries.
const OptionCount = 4

// Source produces exam questions for a (subject, difficulty) pair.
// Implementations must return exactly count well-formed questions.
type Source interface {
	Generate(ctx context.Context, subject, difficulty string, count int) ([]Question, error)
}

// Client generates questions through an OpenAI-compatible chat-completion
// API. Every remote failure mode — network error, timeout, malformed JSON,
// schema violation — is absorbed locally by substituting the deterministic
// Fallback set, so callers always receive exactly count questions. The
// remote call is never retried. With no API key configured the client runs
// purely on the fallback, which is the designed offline/test mode.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// New creates a question generator. An empty apiKey disables the remote path
// entirely. baseURL overrides the API endpoint for OpenAI-compatible
// providers; empty means the default endpoint.
func New(apiKey, baseURL, model string, timeout time.Duration, log zerolog.Logger) *Client {
	c := &Client{
		model:   model,
		timeout: timeout,
		log:     log.With().Str("component", "generator").Logger(),
	}
	if apiKey != "" {
		apiCfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			apiCfg.BaseURL = baseURL
		}
		c.api = openai.NewClientWithConfig(apiCfg)
	}
	return c
}

// Generate returns exactly count questions for the subject/difficulty.
// The only error it can return is a non-positive count.
func (c *Client) Generate(ctx context.Context, subject, difficulty string, count int) ([]Question, error) {
	if count < 1 {
		return nil, fmt.Errorf("generate: count must be >= 1, got %d", count)
	}

	if c.api == nil {
		return Fallback(subject, difficulty, count), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	questions, err := c.generateRemote(ctx, subject, difficulty, count)
	if err != nil {
		c.log.Warn().
			Err(err).
			Str("subject", subject).
			Str("difficulty", difficulty).
			Int("count", count).
			Msg("Remote generation failed, substituting fallback questions")
		return Fallback(subject, difficulty, count), nil
	}

	return questions, nil
}

func (c *Client) generateRemote(ctx context.Context, subject, difficulty string, count int) ([]Question, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(subject, difficulty, count)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	raw := stripCodeFence(resp.Choices[0].Message.Content)

	var questions []Question
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("parse generation response: %w", err)
	}
	if len(questions) != count {
		return nil, fmt.Errorf("expected %d questions, got %d", count, len(questions))
	}
	for i, q := range questions {
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}

	return questions, nil
}

// Fallback returns count deterministic placeholder questions parameterized
// by subject and difficulty. Used when no credential is configured or the
// remote call fails in any way.
func Fallback(subject, difficulty string, count int) []Question {
	questions := make([]Question, count)
	for i := range questions {
		questions[i] = Question{
			Text:          fmt.Sprintf("Sample question %d about %s (%s)", i+1, subject, difficulty),
			Options:       []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectAnswer: "Option A",
		}
	}
	return questions
}

func buildPrompt(subject, difficulty string, count int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d multiple-choice questions on the subject '%s' with '%s' difficulty.\n", count, subject, difficulty)
	sb.WriteString("Return the response strictly as a JSON array of objects.\n")
	sb.WriteString("Each object must have the following keys:\n")
	sb.WriteString("- \"text\": The question text.\n")
	fmt.Fprintf(&sb, "- \"options\": An array of %d options.\n", OptionCount)
	sb.WriteString("- \"correct_answer\": The correct option string (must be one of the options).\n")
	sb.WriteString("Do not include any markdown formatting or explanations. Just the JSON.\n")
	return sb.String()
}

// stripCodeFence removes an optional markdown code-fence wrapper
// (``` or ```json) that some models add around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence, if any.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// validate enforces the question schema: non-empty text, exactly
// OptionCount distinct options, and a correct answer present among them.
func validate(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("empty question text")
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("expected %d options, got %d", OptionCount, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	found := false
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[opt] = struct{}{}
		if opt == q.CorrectAnswer {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("correct answer %q not among options", q.CorrectAnswer)
	}
	return nil
}
