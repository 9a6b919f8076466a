package ai

import "context"

// DecisionAction tells the orchestrator what to do alongside the reply text
type DecisionAction string

const (
	// ActionNormal is a plain text reply
	ActionNormal DecisionAction = "NORMAL"
	// ActionSendImageNow means generate and send an image in the same turn
	ActionSendImageNow DecisionAction = "SEND_IMAGE_NOW"
	// ActionOfferImage means propose a selfie and wait for the user's yes/no
	ActionOfferImage DecisionAction = "OFFER_IMAGE"
)

// ConversationDecision is the structured result of a normal chat turn
type ConversationDecision struct {
	ReplyText    string         `json:"reply_text"`
	Action       DecisionAction `json:"action"`
	ImageContext string         `json:"image_context,omitempty"`
}

// Normalize coerces a malformed decision into a safe text-only one.
// The reply text is preserved when present; a missing reply falls back to
// the given default. Actions that require an image context but lack one
// are downgraded rather than surfaced as errors.
func (d *ConversationDecision) Normalize(fallbackText string) {
	if d.ReplyText == "" {
		d.ReplyText = fallbackText
	}
	switch d.Action {
	case ActionNormal:
	case ActionSendImageNow, ActionOfferImage:
		if d.ImageContext == "" {
			d.Action = ActionNormal
		}
	default:
		d.Action = ActionNormal
		d.ImageContext = ""
	}
}

// CompanionSpec is the slice of the profile the generators need
type CompanionSpec struct {
	UserName    string
	Personality string
	Topics      string
}

// TurnInputs carries everything the text generator needs for one chat turn
type TurnInputs struct {
	UserText      string
	ContextWindow []string // serialized transcript lines, oldest first
	Companion     CompanionSpec
}

// SetupPromptRequest asks the generator to phrase the next onboarding question
type SetupPromptRequest struct {
	Field     string // profile field being collected next
	Question  string // canonical question to rephrase
	UserReply string // last raw reply, used for language matching only
	Companion CompanionSpec
}

// BatchKind selects the multi-prompt derivation mode
type BatchKind string

const (
	// BatchAppearance derives distinct portrait prompts from one description
	BatchAppearance BatchKind = "appearance"
	// BatchPhotoshoot derives pose/angle/expression variations that keep
	// the reference image's outfit and environment
	BatchPhotoshoot BatchKind = "photoshoot"
)

// PromptBatchRequest asks the generator for exactly Count image prompts
type PromptBatchRequest struct {
	Kind        BatchKind
	Description string
	Count       int
	Companion   CompanionSpec
}

// SceneRequest asks the generator to compose a single selfie prompt
type SceneRequest struct {
	TriggerText   string // dominant steering signal
	ContextWindow []string
	Companion     CompanionSpec
}

// TextGenerator is the opaque language-model capability
type TextGenerator interface {
	GenerateDecision(ctx context.Context, in TurnInputs) (*ConversationDecision, error)
	GenerateSetupPrompt(ctx context.Context, req SetupPromptRequest) (string, error)
	GenerateOpeningLine(ctx context.Context, companion CompanionSpec) (string, error)
	GeneratePromptBatch(ctx context.Context, req PromptBatchRequest) ([]string, error)
	GenerateScenePrompt(ctx context.Context, req SceneRequest) (string, error)
}

// ImageBlob is a self-describing image payload passed between components
type ImageBlob struct {
	MIMEType string
	Data     []byte
}

// ImageGenerator is the opaque image-synthesis capability. The reference
// blob, when present, anchors the generated image to the companion's
// established appearance.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, reference *ImageBlob) (*ImageBlob, error)
}
