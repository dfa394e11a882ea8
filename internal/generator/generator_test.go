package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback(t *testing.T) {
	for _, count := range []int{1, 5, 20} {
		t.Run(fmt.Sprintf("count_%d", count), func(t *testing.T) {
			questions := Fallback("Python", "Easy", count)
			require.Len(t, questions, count)

			for _, q := range questions {
				assert.NoError(t, validate(q))
				assert.Contains(t, q.Text, "Python")
				assert.Contains(t, q.Text, "Easy")
				assert.Len(t, q.Options, OptionCount)
				assert.Contains(t, q.Options, q.CorrectAnswer)
			}
		})
	}
}

func TestFallbackDeterministic(t *testing.T) {
	a := Fallback("Go", "Hard", 3)
	b := Fallback("Go", "Hard", 3)
	assert.Equal(t, a, b)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[{"text":"q"}]`, `[{"text":"q"}]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\n[1,2]\n```", "[1,2]"},
		{"surrounding whitespace", "  \n```json\n[]\n```\n ", "[]"},
		{"no closing fence", "```json\n[]", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Question{
		Text:          "What is 2+2?",
		Options:       []string{"1", "2", "3", "4"},
		CorrectAnswer: "4",
	}

	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr bool
	}{
		{"valid", func(q *Question) {}, false},
		{"empty text", func(q *Question) { q.Text = "  " }, true},
		{"too few options", func(q *Question) { q.Options = q.Options[:2] }, true},
		{"duplicate options", func(q *Question) { q.Options = []string{"1", "1", "3", "4"} }, true},
		{"correct answer missing", func(q *Question) { q.CorrectAnswer = "5" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			q.Options = append([]string(nil), valid.Options...)
			tt.mutate(&q)

			err := validate(q)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateOffline(t *testing.T) {
	c := New("", "", "gpt-4o-mini", time.Second, zerolog.Nop())

	questions, err := c.Generate(context.Background(), "History", "Medium", 5)
	require.NoError(t, err)
	require.Len(t, questions, 5)
	for _, q := range questions {
		assert.NoError(t, validate(q))
	}
}

func TestGenerateRejectsNonPositiveCount(t *testing.T) {
	c := New("", "", "gpt-4o-mini", time.Second, zerolog.Nop())

	_, err := c.Generate(context.Background(), "History", "Medium", 0)
	assert.Error(t, err)
}

// completionServer returns an httptest server that answers every chat
// completion request with the given assistant message content.
func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerateRemote(t *testing.T) {
	remote := []Question{
		{Text: "Capital of France?", Options: []string{"Paris", "Rome", "Berlin", "Madrid"}, CorrectAnswer: "Paris"},
		{Text: "Capital of Italy?", Options: []string{"Paris", "Rome", "Berlin", "Madrid"}, CorrectAnswer: "Rome"},
	}
	payload, err := json.Marshal(remote)
	require.NoError(t, err)

	srv := completionServer(t, "```json\n"+string(payload)+"\n```")
	defer srv.Close()

	c := New("test-key", srv.URL+"/v1", "gpt-4o-mini", 5*time.Second, zerolog.Nop())

	questions, err := c.Generate(context.Background(), "Geography", "Easy", 2)
	require.NoError(t, err)
	assert.Equal(t, remote, questions)
}

func TestGenerateRemoteFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", "this is not json"},
		{"wrong count", `[{"text":"q","options":["a","b","c","d"],"correct_answer":"a"}]`},
		{"schema violation", `[{"text":"q","options":["a","b"],"correct_answer":"a"},{"text":"q2","options":["a","b"],"correct_answer":"a"}]`},
		{"correct answer not an option", `[{"text":"q","options":["a","b","c","d"],"correct_answer":"x"},{"text":"q2","options":["a","b","c","d"],"correct_answer":"x"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := completionServer(t, tt.content)
			defer srv.Close()

			c := New("test-key", srv.URL+"/v1", "gpt-4o-mini", 5*time.Second, zerolog.Nop())

			questions, err := c.Generate(context.Background(), "Geography", "Easy", 2)
			require.NoError(t, err)
			assert.Equal(t, Fallback("Geography", "Easy", 2), questions)
		})
	}
}

func TestGenerateRemoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("test-key", srv.URL+"/v1", "gpt-4o-mini", 5*time.Second, zerolog.Nop())

	questions, err := c.Generate(context.Background(), "Math", "Hard", 3)
	require.NoError(t, err)
	assert.Equal(t, Fallback("Math", "Hard", 3), questions)
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("Chemistry", "Medium", 5)
	assert.Contains(t, prompt, "5 multiple-choice questions")
	assert.Contains(t, prompt, "'Chemistry'")
	assert.Contains(t, prompt, "'Medium'")
	assert.Contains(t, prompt, "JSON array")
	assert.Contains(t, prompt, "correct_answer")
}
