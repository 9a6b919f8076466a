package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-companion-chat/backend/ai"
	"ai-companion-chat/backend/chat/models"
	"ai-companion-chat/backend/pkg/logger"
)

// stubTextGenerator returns canned values and records calls
type stubTextGenerator struct {
	decision     *ai.ConversationDecision
	decisionErr  error
	setupPrompt  string
	setupErr     error
	openingLine  string
	openingErr   error
	batch        []string
	batchErr     error
	scenePrompt  string
	sceneErr     error
	batchCalls   int
	lastBatchReq ai.PromptBatchRequest
	lastTurn     ai.TurnInputs
	blockEntered chan struct{}
	block        chan struct{}
}

func (s *stubTextGenerator) GenerateDecision(_ context.Context, in ai.TurnInputs) (*ai.ConversationDecision, error) {
	s.lastTurn = in
	if s.block != nil {
		if s.blockEntered != nil {
			close(s.blockEntered)
			s.blockEntered = nil
		}
		<-s.block
	}
	if s.decisionErr != nil {
		return nil, s.decisionErr
	}
	if s.decision == nil {
		return &ai.ConversationDecision{ReplyText: "sure!", Action: ai.ActionNormal}, nil
	}
	d := *s.decision
	return &d, nil
}

func (s *stubTextGenerator) GenerateSetupPrompt(_ context.Context, _ ai.SetupPromptRequest) (string, error) {
	return s.setupPrompt, s.setupErr
}

func (s *stubTextGenerator) GenerateOpeningLine(_ context.Context, _ ai.CompanionSpec) (string, error) {
	if s.openingErr != nil {
		return "", s.openingErr
	}
	if s.openingLine == "" {
		return "Hey, great to finally meet you!", nil
	}
	return s.openingLine, nil
}

func (s *stubTextGenerator) GeneratePromptBatch(_ context.Context, req ai.PromptBatchRequest) ([]string, error) {
	s.batchCalls++
	s.lastBatchReq = req
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	if s.batch != nil {
		return s.batch, nil
	}
	out := make([]string, req.Count)
	for i := range out {
		out[i] = fmt.Sprintf("%s prompt %d", req.Kind, i+1)
	}
	return out, nil
}

func (s *stubTextGenerator) GenerateScenePrompt(_ context.Context, req ai.SceneRequest) (string, error) {
	if s.sceneErr != nil {
		return "", s.sceneErr
	}
	if s.scenePrompt == "" {
		return "selfie: " + req.TriggerText, nil
	}
	return s.scenePrompt, nil
}

func testWizard(text ai.TextGenerator) *SetupWizard {
	return NewSetupWizard(text, logger.New(logger.Config{Level: "error"}))
}

// walk the wizard through name, personality and topics
func advanceToVoiceDecision(t *testing.T, w *SetupWizard) {
	t.Helper()
	ctx := context.Background()
	w.Advance(ctx, "Alex")
	w.Advance(ctx, "cheerful and witty")
	w.Advance(ctx, "music and travel")
	require.Equal(t, models.StepVoiceDecision, w.Step())
}

func TestWizardHappyPathToConfirm(t *testing.T) {
	w := testWizard(&stubTextGenerator{setupPrompt: "tailored question"})
	ctx := context.Background()

	turn := w.Advance(ctx, "Alex")
	assert.Equal(t, models.StepPersonality, w.Step())
	assert.Equal(t, []string{"tailored question"}, turn.Prompts)

	w.Advance(ctx, "cheerful")
	w.Advance(ctx, "music")
	assert.Equal(t, models.StepVoiceDecision, w.Step())

	turn = w.Advance(ctx, "no")
	assert.Equal(t, models.StepAppearance, w.Step())
	assert.Nil(t, w.Draft().SelectedVoiceID)

	turn = w.Advance(ctx, "red hair, green eyes")
	assert.Equal(t, models.StepConfirm, w.Step())

	turn = w.Advance(ctx, "yes")
	assert.Equal(t, models.StepGeneratingLooks, w.Step())
	assert.True(t, turn.GenerateLooks)

	draft := w.Draft()
	assert.Equal(t, "Alex", draft.UserName)
	assert.Equal(t, "cheerful", draft.Personality)
	assert.Equal(t, "music", draft.Topics)
	assert.Equal(t, "red hair, green eyes", draft.AppearanceDescription)
}

func TestWizardBlankRepliesUseDefaults(t *testing.T) {
	w := testWizard(&stubTextGenerator{setupErr: fmt.Errorf("unavailable")})
	ctx := context.Background()

	turn := w.Advance(ctx, "   ")
	assert.Equal(t, "Friend", w.Draft().UserName)
	// generator failure falls back to the canonical question
	assert.Equal(t, []string{setupQuestions[models.StepPersonality]}, turn.Prompts)

	w.Advance(ctx, "")
	assert.Equal(t, setupDefaults[models.StepPersonality], w.Draft().Personality)
}

func TestWizardVoiceDecisionBranch(t *testing.T) {
	w := testWizard(&stubTextGenerator{})
	advanceToVoiceDecision(t, w)

	turn := w.Advance(context.Background(), "да, давай")
	assert.Equal(t, models.StepVoiceSelection, w.Step())
	assert.True(t, turn.AwaitVoicePick)

	// chat text does not advance voice selection
	turn = w.Advance(context.Background(), "hmm which one")
	assert.Equal(t, models.StepVoiceSelection, w.Step())
	assert.True(t, turn.AwaitVoicePick)

	id := VoiceCatalog[0].ID
	turn, err := w.ChooseVoice(&id)
	require.NoError(t, err)
	assert.Equal(t, models.StepAppearance, w.Step())
	require.NotNil(t, w.Draft().SelectedVoiceID)
	assert.Equal(t, id, *w.Draft().SelectedVoiceID)
}

func TestWizardVoiceDecisionAmbiguousSkips(t *testing.T) {
	w := testWizard(&stubTextGenerator{})
	advanceToVoiceDecision(t, w)

	w.Advance(context.Background(), "tell me about voices first")
	assert.Equal(t, models.StepAppearance, w.Step())
	assert.Nil(t, w.Draft().SelectedVoiceID)
}

func TestWizardChooseVoiceRejectsUnknownID(t *testing.T) {
	w := testWizard(&stubTextGenerator{})
	advanceToVoiceDecision(t, w)
	w.Advance(context.Background(), "yes")

	bogus := "not-a-voice"
	_, err := w.ChooseVoice(&bogus)
	assert.Error(t, err)
	assert.Equal(t, models.StepVoiceSelection, w.Step())
}

func TestWizardConfirmDeclineReturnsToAppearance(t *testing.T) {
	w := testWizard(&stubTextGenerator{})
	ctx := context.Background()
	advanceToVoiceDecision(t, w)
	w.Advance(ctx, "no")
	w.Advance(ctx, "short blue hair")
	require.Equal(t, models.StepConfirm, w.Step())

	w.Advance(ctx, "no wait")
	assert.Equal(t, models.StepAppearance, w.Step())
}

func TestWizardLooksLifecycle(t *testing.T) {
	w := testWizard(&stubTextGenerator{})
	ctx := context.Background()
	advanceToVoiceDecision(t, w)
	w.Advance(ctx, "no")
	w.Advance(ctx, "freckles")
	w.Advance(ctx, "yes")
	require.Equal(t, models.StepGeneratingLooks, w.Step())

	options := []ai.ImageBlob{
		{MIMEType: "image/png", Data: []byte{1}},
		{MIMEType: "image/png", Data: []byte{2}},
	}
	turn := w.LooksReady(options)
	assert.Equal(t, models.StepSelectingAvatar, w.Step())
	assert.True(t, turn.AwaitAvatarPick)

	draft, chosen, reset, err := w.ChooseAvatar(1)
	require.NoError(t, err)
	assert.Nil(t, reset)
	require.NotNil(t, draft)
	assert.Equal(t, []byte{2}, chosen.Data)
	assert.Equal(t, models.StepSelectingAvatar, w.Step(), "pick stays retryable until Finish")

	w.Finish()
	assert.Equal(t, models.StepReady, w.Step())
	assert.Empty(t, w.Options(), "portrait batch dropped once setup is done")
}

func TestWizardLooksFailedFallsBack(t *testing.T) {
	w := testWizard(&stubTextGenerator{})
	ctx := context.Background()
	advanceToVoiceDecision(t, w)
	w.Advance(ctx, "no")
	w.Advance(ctx, "freckles")
	w.Advance(ctx, "ok")
	require.Equal(t, models.StepGeneratingLooks, w.Step())

	w.LooksFailed()
	assert.Equal(t, models.StepAppearance, w.Step())
	assert.Empty(t, w.Options())
}

func TestWizardVoiceDetourResumesInterruptedStep(t *testing.T) {
	w := testWizard(&stubTextGenerator{})
	ctx := context.Background()
	w.Advance(ctx, "Alex")
	require.Equal(t, models.StepPersonality, w.Step())

	turn, ok := w.RequestVoiceSelection()
	require.True(t, ok)
	assert.True(t, turn.AwaitVoicePick)
	assert.Equal(t, models.StepVoiceSelection, w.Step())

	id := VoiceCatalog[0].ID
	turn, err := w.ChooseVoice(&id)
	require.NoError(t, err)
	assert.Equal(t, models.StepPersonality, w.Step(), "detour hands setup back where it left off")
	require.Len(t, turn.Prompts, 1)
	assert.Contains(t, turn.Prompts[0], "personality")
	require.NotNil(t, w.Draft().SelectedVoiceID)
	assert.Equal(t, id, *w.Draft().SelectedVoiceID)
}

func TestWizardVoiceDetourFromAvatarSelection(t *testing.T) {
	w := testWizard(&stubTextGenerator{})
	ctx := context.Background()
	advanceToVoiceDecision(t, w)
	w.Advance(ctx, "no")
	w.Advance(ctx, "freckles")
	w.Advance(ctx, "yes")
	w.LooksReady([]ai.ImageBlob{{MIMEType: "image/png", Data: []byte{1}}})
	require.Equal(t, models.StepSelectingAvatar, w.Step())

	_, ok := w.RequestVoiceSelection()
	require.True(t, ok)

	turn, err := w.ChooseVoice(nil)
	require.NoError(t, err)
	assert.Equal(t, models.StepSelectingAvatar, w.Step())
	assert.True(t, turn.AwaitAvatarPick, "portrait pick still pending after the detour")
}

func TestWizardVoiceSelectionNeedsName(t *testing.T) {
	w := testWizard(&stubTextGenerator{})

	_, ok := w.RequestVoiceSelection()
	assert.False(t, ok, "no name on the draft yet")
	assert.Equal(t, models.StepName, w.Step())
}

func TestWizardChooseAvatarValidation(t *testing.T) {
	w := testWizard(&stubTextGenerator{})

	_, _, _, err := w.ChooseAvatar(0)
	assert.Error(t, err, "no selection in progress yet")

	ctx := context.Background()
	advanceToVoiceDecision(t, w)
	w.Advance(ctx, "no")
	w.Advance(ctx, "freckles")
	w.Advance(ctx, "yes")
	w.LooksReady([]ai.ImageBlob{{MIMEType: "image/png", Data: []byte{1}}})

	_, _, _, err = w.ChooseAvatar(5)
	assert.Error(t, err)
	assert.Equal(t, models.StepSelectingAvatar, w.Step(), "failed pick keeps the step")
}
