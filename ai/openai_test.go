package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletions returns a test server that answers every chat completion
// with the given model output
func fakeCompletions(t *testing.T, modelOutput string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": modelOutput}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestGenerator(t *testing.T, srv *httptest.Server) *OpenAITextGenerator {
	t.Helper()
	g, err := NewOpenAITextGenerator(srv.URL, "test-key", "gpt-4o", time.Second)
	require.NoError(t, err)
	return g
}

func TestGenerateDecision_ParsesStructuredOutput(t *testing.T) {
	srv := fakeCompletions(t, `{"reply_text":"here you go!","action":"SEND_IMAGE_NOW","image_context":"at the beach"}`)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	decision, err := g.GenerateDecision(context.Background(), TurnInputs{
		UserText:  "send me a photo",
		Companion: CompanionSpec{UserName: "Alex", Personality: "witty", Topics: "movies"},
	})
	require.NoError(t, err)
	assert.Equal(t, ActionSendImageNow, decision.Action)
	assert.Equal(t, "at the beach", decision.ImageContext)
	assert.Equal(t, "here you go!", decision.ReplyText)
}

func TestGeneratePromptBatch_RejectsWrongCount(t *testing.T) {
	srv := fakeCompletions(t, `{"prompts":["one","two","three"]}`)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	_, err := g.GeneratePromptBatch(context.Background(), PromptBatchRequest{
		Kind:        BatchAppearance,
		Description: "tall, dark hair",
		Count:       4,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 prompts, want 4")
}

func TestGeneratePromptBatch_ExactCount(t *testing.T) {
	srv := fakeCompletions(t, `{"prompts":["a","b","c","d","e"]}`)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	prompts, err := g.GeneratePromptBatch(context.Background(), PromptBatchRequest{
		Kind:        BatchPhotoshoot,
		Description: "sunset walk",
		Count:       5,
	})
	require.NoError(t, err)
	assert.Len(t, prompts, 5)
}

func TestGenerateSetupPrompt(t *testing.T) {
	srv := fakeCompletions(t, `{"prompt":"What should I call you?"}`)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	prompt, err := g.GenerateSetupPrompt(context.Background(), SetupPromptRequest{
		Field:    "name",
		Question: "What is your name?",
	})
	require.NoError(t, err)
	assert.Equal(t, "What should I call you?", prompt)
}

func TestChatJSON_ClassifiesProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv)
	_, err := g.GenerateOpeningLine(context.Background(), CompanionSpec{UserName: "Alex"})
	require.Error(t, err)
	assert.Equal(t, ErrKindOverloaded, Classify(err))
}

func TestNormalize_DowngradesMissingImageContext(t *testing.T) {
	d := &ConversationDecision{ReplyText: "sure thing", Action: ActionSendImageNow}
	d.Normalize("fallback")
	assert.Equal(t, ActionNormal, d.Action)
	assert.Equal(t, "sure thing", d.ReplyText)
}

func TestNormalize_UnknownActionAndEmptyReply(t *testing.T) {
	d := &ConversationDecision{Action: DecisionAction("DANCE"), ImageContext: "x"}
	d.Normalize("fallback")
	assert.Equal(t, ActionNormal, d.Action)
	assert.Equal(t, "fallback", d.ReplyText)
	assert.Empty(t, d.ImageContext)
}

func TestNormalize_KeepsValidOffer(t *testing.T) {
	d := &ConversationDecision{ReplyText: "want a pic?", Action: ActionOfferImage, ImageContext: "new scarf"}
	d.Normalize("fallback")
	assert.Equal(t, ActionOfferImage, d.Action)
	assert.Equal(t, "new scarf", d.ImageContext)
}
