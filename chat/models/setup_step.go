package models

// SetupStep tracks progress through the companion setup wizard. Steps only
// ever advance forward, except for an explicit reset via /start or a
// generation failure that backs the wizard up to appearance entry.
type SetupStep int

const (
	StepName SetupStep = iota
	StepPersonality
	StepTopics
	StepVoiceDecision
	StepVoiceSelection
	StepAppearance
	StepConfirm
	StepGeneratingLooks
	StepSelectingAvatar
	StepReady
)

func (s SetupStep) String() string {
	switch s {
	case StepName:
		return "name"
	case StepPersonality:
		return "personality"
	case StepTopics:
		return "topics"
	case StepVoiceDecision:
		return "voice_decision"
	case StepVoiceSelection:
		return "voice_selection"
	case StepAppearance:
		return "appearance"
	case StepConfirm:
		return "confirm"
	case StepGeneratingLooks:
		return "generating_looks"
	case StepSelectingAvatar:
		return "selecting_avatar"
	case StepReady:
		return "ready"
	default:
		return "unknown"
	}
}
