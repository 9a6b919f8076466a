package service

import (
	"strings"

	"ai-companion-chat/backend/chat/models"
)

// CommandKind identifies a slash command.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdStart
	CmdVoice
	CmdRepeat
	CmdPhoto
	CmdHelp
)

// Command is a parsed slash command. For /photo, Description carries the
// free-text scene and InlineRef an optional pasted reference image.
type Command struct {
	Kind        CommandKind
	Description string
	InlineRef   string
}

// ParseCommand recognizes a leading slash command in raw user input.
// Returns false when the input is ordinary chat text. Unknown slash words
// are still reported as commands so the caller can point users at /help.
func ParseCommand(raw string) (Command, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{}, false
	}

	word := trimmed
	rest := ""
	if idx := strings.IndexFunc(trimmed, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }); idx > 0 {
		word = trimmed[:idx]
		rest = strings.TrimSpace(trimmed[idx:])
	}

	switch strings.ToLower(word) {
	case "/start":
		return Command{Kind: CmdStart}, true
	case "/voice":
		return Command{Kind: CmdVoice}, true
	case "/repeat":
		return Command{Kind: CmdRepeat}, true
	case "/help":
		return Command{Kind: CmdHelp}, true
	case "/photo":
		cmd := Command{Kind: CmdPhoto}
		if ref, remaining, found := models.ExtractImageRef(rest); found {
			cmd.InlineRef = ref
			cmd.Description = remaining
		} else {
			cmd.Description = rest
		}
		return cmd, true
	default:
		return Command{Kind: CmdUnknown}, true
	}
}

// HelpText lists the commands shown to users by /help
const HelpText = `Here's what I can do:
/start - reset everything and set up a new companion
/voice - pick or change my voice
/repeat - toggle reading my replies out loud
/photo <description> - commission a 5-shot photoshoot (attach a reference image to guide it)
/help - show this message`
