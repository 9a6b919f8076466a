package service

import (
	"context"
	"fmt"
	"strings"

	"ai-companion-chat/backend/ai"
	"ai-companion-chat/backend/chat/models"
	profilemodels "ai-companion-chat/backend/profile/models"
	"ai-companion-chat/backend/pkg/logger"
)

// setupQuestions are the canonical prompts for each wizard step, used
// verbatim when the generator cannot supply a personalized phrasing.
var setupQuestions = map[models.SetupStep]string{
	models.StepName:           "First things first, what should I call you?",
	models.StepPersonality:    "How should I be? Playful, thoughtful, a little sarcastic... describe my personality.",
	models.StepTopics:         "What do you love talking about? I'll keep those topics close.",
	models.StepVoiceDecision:  "Would you like to pick a voice for me?",
	models.StepVoiceSelection: "Pick a voice from the list and I'll start speaking in it.",
	models.StepAppearance:     "Now the fun part. Describe how I should look.",
	models.StepConfirm:        "Got it! Ready to see a few looks based on that?",
}

// setupDefaults fill in for blank replies on free-text steps
var setupDefaults = map[models.SetupStep]string{
	models.StepName:        "Friend",
	models.StepPersonality: "warm, curious and playful",
	models.StepTopics:      "everyday life and whatever is on your mind",
	models.StepAppearance:  "a friendly face with a warm smile and casual style",
}

// WizardTurn is what the wizard wants sent back to the user, plus signals
// the orchestrator acts on.
type WizardTurn struct {
	Prompts         []string
	GenerateLooks   bool
	AwaitVoicePick  bool
	AwaitAvatarPick bool
}

// SetupWizard walks a session through companion creation: name,
// personality, topics, optional voice, appearance, then avatar selection.
// Steps advance strictly forward except for resets and a fallback to
// appearance entry when look generation fails. Not safe for concurrent use;
// the orchestrator serializes turns per session.
type SetupWizard struct {
	text    ai.TextGenerator
	log     *logger.Logger
	step    models.SetupStep
	draft   profilemodels.Draft
	options []ai.ImageBlob

	// where to pick setup back up after an out-of-band /voice detour
	resume    models.SetupStep
	hasResume bool
}

func NewSetupWizard(text ai.TextGenerator, log *logger.Logger) *SetupWizard {
	return &SetupWizard{text: text, log: log, step: models.StepName}
}

func (w *SetupWizard) Step() models.SetupStep { return w.step }

// Draft exposes the in-progress profile fields collected so far
func (w *SetupWizard) Draft() profilemodels.Draft { return w.draft }

// Options returns the generated appearance candidates awaiting selection
func (w *SetupWizard) Options() []ai.ImageBlob { return w.options }

// Reset returns the wizard to its initial state and drops the draft
func (w *SetupWizard) Reset() {
	w.step = models.StepName
	w.draft = profilemodels.Draft{}
	w.options = nil
	w.hasResume = false
}

// FirstQuestion is the opener for a brand-new session
func (w *SetupWizard) FirstQuestion() string {
	return "Hi! I'm your new companion, let's get to know each other. " + setupQuestions[models.StepName]
}

// Advance consumes one user reply and moves the wizard forward.
func (w *SetupWizard) Advance(ctx context.Context, reply string) *WizardTurn {
	switch w.step {
	case models.StepName:
		w.draft.UserName = orDefault(reply, setupDefaults[models.StepName])
		w.step = models.StepPersonality
		return &WizardTurn{Prompts: []string{w.askFor(ctx, "personality", models.StepPersonality, reply)}}

	case models.StepPersonality:
		w.draft.Personality = orDefault(reply, setupDefaults[models.StepPersonality])
		w.step = models.StepTopics
		return &WizardTurn{Prompts: []string{w.askFor(ctx, "topics", models.StepTopics, reply)}}

	case models.StepTopics:
		w.draft.Topics = orDefault(reply, setupDefaults[models.StepTopics])
		w.step = models.StepVoiceDecision
		return &WizardTurn{Prompts: []string{setupQuestions[models.StepVoiceDecision]}}

	case models.StepVoiceDecision:
		if ClassifyYesNo(reply) == IntentAffirmative {
			w.step = models.StepVoiceSelection
			return &WizardTurn{
				Prompts:        []string{setupQuestions[models.StepVoiceSelection]},
				AwaitVoicePick: true,
			}
		}
		w.draft.SelectedVoiceID = nil
		w.step = models.StepAppearance
		return &WizardTurn{Prompts: []string{w.askFor(ctx, "appearance", models.StepAppearance, reply)}}

	case models.StepVoiceSelection:
		// waiting on the picker; chat text does not advance this step
		return &WizardTurn{
			Prompts:        []string{"Use the voice picker to choose, or I can go on without one." + " " + setupQuestions[models.StepVoiceSelection]},
			AwaitVoicePick: true,
		}

	case models.StepAppearance:
		w.draft.AppearanceDescription = orDefault(reply, setupDefaults[models.StepAppearance])
		w.step = models.StepConfirm
		return &WizardTurn{Prompts: []string{setupQuestions[models.StepConfirm]}}

	case models.StepConfirm:
		if ClassifyYesNo(reply) == IntentNegative {
			w.step = models.StepAppearance
			return &WizardTurn{Prompts: []string{"No problem, let's adjust. " + setupQuestions[models.StepAppearance]}}
		}
		w.step = models.StepGeneratingLooks
		return &WizardTurn{
			Prompts:       []string{"Give me a moment, I'm trying on a few looks..."},
			GenerateLooks: true,
		}

	case models.StepGeneratingLooks:
		return &WizardTurn{Prompts: []string{"Still working on those looks, one second!"}}

	case models.StepSelectingAvatar:
		return &WizardTurn{
			Prompts:         []string{"Pick one of the portraits and we're done!"},
			AwaitAvatarPick: true,
		}

	default:
		// StepReady; the orchestrator should never route here
		return &WizardTurn{}
	}
}

// LooksReady records the generated appearance options and moves to selection
func (w *SetupWizard) LooksReady(options []ai.ImageBlob) *WizardTurn {
	w.options = options
	w.step = models.StepSelectingAvatar
	return &WizardTurn{
		Prompts: []string{fmt.Sprintf(
			"Here I am! %d looks based on what you described. Pick your favorite.", len(options))},
		AwaitAvatarPick: true,
	}
}

// LooksFailed backs the wizard up so the user can rephrase the description
func (w *SetupWizard) LooksFailed() *WizardTurn {
	w.options = nil
	w.step = models.StepAppearance
	return &WizardTurn{Prompts: []string{
		"I couldn't come up with looks from that, sorry. " + setupQuestions[models.StepAppearance],
	}}
}

// RequestVoiceSelection jumps the wizard to the voice picker, for the
// /voice command issued during setup, remembering where to pick setup back
// up afterwards. It needs a name on the draft; otherwise there is nobody to
// pick a voice for yet.
func (w *SetupWizard) RequestVoiceSelection() (*WizardTurn, bool) {
	if w.draft.UserName == "" {
		return nil, false
	}
	if w.step != models.StepVoiceSelection {
		w.resume = w.step
		w.hasResume = true
		w.step = models.StepVoiceSelection
	}
	return &WizardTurn{
		Prompts:        []string{setupQuestions[models.StepVoiceSelection]},
		AwaitVoicePick: true,
	}, true
}

// ChooseVoice records the picker result during first-run setup. A nil id
// means the user skipped voice selection. After a /voice detour setup
// resumes at the interrupted step; in the normal flow it moves on to
// appearance.
func (w *SetupWizard) ChooseVoice(id *string) (*WizardTurn, error) {
	if w.step != models.StepVoiceSelection {
		return nil, fmt.Errorf("no voice selection in progress")
	}
	if id != nil && !ValidVoiceID(*id) {
		return nil, fmt.Errorf("unknown voice id %q", *id)
	}
	w.draft.SelectedVoiceID = id

	next := models.StepAppearance
	if w.hasResume && w.resume != models.StepVoiceDecision {
		next = w.resume
	}
	w.hasResume = false
	w.step = next

	if next == models.StepSelectingAvatar {
		return &WizardTurn{
			Prompts:         []string{"Voice saved. Pick one of the portraits and we're done!"},
			AwaitAvatarPick: true,
		}, nil
	}
	return &WizardTurn{Prompts: []string{setupQuestions[next]}}, nil
}

// ChooseAvatar resolves the portrait pick. On success it returns the
// finished draft and the chosen image; the caller promotes and persists,
// then confirms with Finish. The wizard stays on the selection step until
// then, so a failed save leaves the pick retryable.
// A draft that somehow lost its required fields restarts the wizard.
func (w *SetupWizard) ChooseAvatar(index int) (*profilemodels.Draft, *ai.ImageBlob, *WizardTurn, error) {
	if w.step != models.StepSelectingAvatar {
		return nil, nil, nil, fmt.Errorf("no avatar selection in progress")
	}
	if index < 0 || index >= len(w.options) {
		return nil, nil, nil, fmt.Errorf("avatar index %d out of range", index)
	}
	if !w.draft.HasRequiredText() {
		w.Reset()
		return nil, nil, &WizardTurn{Prompts: []string{
			"Something went sideways with your setup, let's start over. " + setupQuestions[models.StepName],
		}}, nil
	}
	chosen := w.options[index]
	draft := w.draft
	return &draft, &chosen, nil, nil
}

// Finish marks setup complete once the promoted profile is persisted and
// drops the portrait batch.
func (w *SetupWizard) Finish() {
	w.step = models.StepReady
	w.options = nil
}

// askFor tries to get a personalized phrasing of the next question and
// falls back to the canonical one.
func (w *SetupWizard) askFor(ctx context.Context, field string, step models.SetupStep, lastReply string) string {
	canonical := setupQuestions[step]
	prompt, err := w.text.GenerateSetupPrompt(ctx, ai.SetupPromptRequest{
		Field:     field,
		Question:  canonical,
		UserReply: lastReply,
		Companion: ai.CompanionSpec{
			UserName:    w.draft.UserName,
			Personality: w.draft.Personality,
			Topics:      w.draft.Topics,
		},
	})
	if err != nil || prompt == "" {
		if err != nil {
			w.log.Warn("setup prompt generation failed, using canonical question", "field", field, "error", err)
		}
		return canonical
	}
	return prompt
}

func orDefault(reply, def string) string {
	if trimmed := strings.TrimSpace(reply); trimmed != "" {
		return trimmed
	}
	return def
}
