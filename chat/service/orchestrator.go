package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-companion-chat/backend/ai"
	"ai-companion-chat/backend/chat/models"
	chatrepo "ai-companion-chat/backend/chat/repository"
	apperrors "ai-companion-chat/backend/pkg/errors"
	"ai-companion-chat/backend/pkg/logger"
	"ai-companion-chat/backend/pkg/resilience"
	profilemodels "ai-companion-chat/backend/profile/models"
	profileservice "ai-companion-chat/backend/profile/service"
	"ai-companion-chat/backend/shared/observability"
)

const fallbackReply = "Sorry, I lost my train of thought. Can you say that again?"

// Options tunes the orchestrator's image counts and context depth
type Options struct {
	ContextWindow   int
	AppearanceCount int
	PhotoshootCount int
}

func DefaultOptions() Options {
	return Options{ContextWindow: 8, AppearanceCount: 4, PhotoshootCount: 5}
}

// session is the per-session chat state. Its mutex serializes turns: a
// second message, command or picker action for the same session waits for
// the in-flight turn to finish.
type session struct {
	id       string
	mu       sync.Mutex
	wizard   *SetupWizard
	offers   *SelfieOfferTracker
	profile  *profilemodels.Profile
	loaded   bool
	lastSeen time.Time
}

// Orchestrator routes every user input for a session: slash commands first,
// then a pending selfie offer, then the setup wizard or a normal chat turn.
type Orchestrator struct {
	text       ai.TextGenerator
	images     *ImageService
	profiles   *profileservice.ProfileService
	transcript chatrepo.TranscriptRepository
	breaker    *resilience.CircuitBreaker
	metrics    *observability.ChatMetrics
	log        *logger.Logger
	opts       Options

	mu       sync.Mutex
	sessions map[string]*session
	emit     func(sessionID string, msg models.Message)
}

func NewOrchestrator(
	text ai.TextGenerator,
	images *ImageService,
	profiles *profileservice.ProfileService,
	transcript chatrepo.TranscriptRepository,
	breaker *resilience.CircuitBreaker,
	metrics *observability.ChatMetrics,
	log *logger.Logger,
	opts Options,
) *Orchestrator {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultOptions().ContextWindow
	}
	if opts.AppearanceCount <= 0 {
		opts.AppearanceCount = DefaultOptions().AppearanceCount
	}
	if opts.PhotoshootCount <= 0 {
		opts.PhotoshootCount = DefaultOptions().PhotoshootCount
	}
	return &Orchestrator{
		text:       text,
		images:     images,
		profiles:   profiles,
		transcript: transcript,
		breaker:    breaker,
		metrics:    metrics,
		log:        log,
		opts:       opts,
		sessions:   make(map[string]*session),
	}
}

// SetEmitter registers a hook invoked for every appended message, used to
// push messages over WebSocket as they are produced mid-turn.
func (o *Orchestrator) SetEmitter(emit func(sessionID string, msg models.Message)) {
	o.emit = emit
}

func (o *Orchestrator) session(sessionID string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		s = &session{
			id:     sessionID,
			wizard: NewSetupWizard(o.text, o.log),
			offers: NewSelfieOfferTracker(),
		}
		o.sessions[sessionID] = s
	}
	s.lastSeen = time.Now()
	return s
}

// StartEvictor periodically drops in-memory state for idle sessions. The
// profile and transcript stay in their stores, so a returning session picks
// up where it left off; only unfinished wizard progress is lost.
func (o *Orchestrator) StartEvictor(interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			o.evictIdle(ttl)
		}
	}()
}

func (o *Orchestrator) evictIdle(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, s := range o.sessions {
		if s.lastSeen.Before(cutoff) && s.mu.TryLock() {
			s.mu.Unlock()
			delete(o.sessions, id)
		}
	}
}

// ensureProfile lazily loads the persisted profile, so sessions survive a
// server restart with their companion intact.
func (o *Orchestrator) ensureProfile(ctx context.Context, sess *session) {
	if sess.loaded {
		return
	}
	profile, err := o.profiles.Get(ctx, sess.id)
	if err != nil {
		o.log.LogError(err, "failed to load profile", "session_id", sess.id)
	}
	sess.profile = profile
	sess.loaded = true
}

// StartSession creates a fresh session and returns its greeting
func (o *Orchestrator) StartSession(ctx context.Context) (string, []models.Message, error) {
	sessionID := uuid.NewString()
	sess := o.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.loaded = true

	greeting := o.appendMessage(ctx, sessionID, models.SenderAssistant, sess.wizard.FirstQuestion(), "")
	return sessionID, []models.Message{greeting}, nil
}

// HandleTurn processes one user input end to end and returns the assistant
// messages it produced. Turns for the same session run strictly one at a
// time.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string) ([]models.Message, error) {
	sess := o.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if o.metrics != nil {
		o.metrics.TurnsProcessed.Inc()
	}
	o.ensureProfile(ctx, sess)

	// A pasted reference image goes into the message's image slot, not its
	// text, keeping base64 payloads out of later context windows.
	ref, stored, _ := models.ExtractImageRef(text)
	userMsg := o.appendMessage(ctx, sessionID, models.SenderUser, stored, ref)

	if cmd, ok := ParseCommand(text); ok {
		return o.handleCommand(ctx, sess, cmd)
	}
	if sess.offers.Pending() {
		return o.resolveOffer(ctx, sess, stored, userMsg.ExternalID)
	}
	if sess.profile.IsComplete() {
		return o.normalTurn(ctx, sess, stored, userMsg.ExternalID)
	}
	return o.wizardTurn(ctx, sess, stored)
}

// wizardTurn feeds the reply to the setup wizard and runs look generation
// when the wizard asks for it.
func (o *Orchestrator) wizardTurn(ctx context.Context, sess *session, text string) ([]models.Message, error) {
	turn := sess.wizard.Advance(ctx, text)
	out := o.appendPrompts(ctx, sess.id, turn)

	if turn.GenerateLooks {
		draft := sess.wizard.Draft()
		options, err := o.images.AppearanceOptions(ctx, draftSpec(draft), draft.AppearanceDescription, o.opts.AppearanceCount)
		var followUp *WizardTurn
		if err != nil {
			o.log.LogError(err, "appearance generation failed", "session_id", sess.id)
			followUp = sess.wizard.LooksFailed()
		} else {
			followUp = sess.wizard.LooksReady(options)
		}
		out = append(out, o.appendPrompts(ctx, sess.id, followUp)...)
	}
	return out, nil
}

// normalTurn asks the generator for a structured decision and acts on it
func (o *Orchestrator) normalTurn(ctx context.Context, sess *session, text, excludeID string) ([]models.Message, error) {
	window := o.contextWindow(ctx, sess.id, excludeID)
	companion := profileSpec(sess.profile)

	var decision *ai.ConversationDecision
	err := o.breaker.Execute(func() error {
		d, genErr := o.text.GenerateDecision(ctx, ai.TurnInputs{
			UserText:      text,
			ContextWindow: window,
			Companion:     companion,
		})
		if genErr != nil {
			return genErr
		}
		decision = d
		return nil
	})
	if err != nil {
		o.log.LogError(err, "decision generation failed", "session_id", sess.id)
		return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant, apologyFor(err), "")}, nil
	}

	decision.Normalize(fallbackReply)
	out := []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant, decision.ReplyText, "")}

	switch decision.Action {
	case ai.ActionSendImageNow:
		out = append(out, o.sendSelfie(ctx, sess, decision.ImageContext))
	case ai.ActionOfferImage:
		if !sess.offers.Propose(decision.ImageContext) {
			o.log.Debug("dropping stacked selfie offer", "session_id", sess.id)
		}
	}
	return out, nil
}

// resolveOffer consumes the pending selfie offer with the user's reply. A
// decline, explicit or not, hands the same reply on as a normal turn.
func (o *Orchestrator) resolveOffer(ctx context.Context, sess *session, text, excludeID string) ([]models.Message, error) {
	outcome, offer := sess.offers.Resolve(text)
	if o.metrics != nil {
		label := "declined"
		if outcome == OfferAccepted {
			label = "accepted"
		}
		o.metrics.OffersResolved.WithLabelValues(label).Inc()
	}

	if outcome == OfferAccepted {
		return []models.Message{o.sendSelfie(ctx, sess, offer.Context)}, nil
	}

	var out []models.Message
	if ClassifyYesNo(text) == IntentNegative {
		out = append(out, o.appendMessage(ctx, sess.id, models.SenderAssistant, "No worries, maybe another time!", ""))
	}
	more, err := o.normalTurn(ctx, sess, text, excludeID)
	return append(out, more...), err
}

// sendSelfie generates one image in the flow of conversation. Failures
// degrade to an apologetic text so the turn never errors out.
func (o *Orchestrator) sendSelfie(ctx context.Context, sess *session, trigger string) models.Message {
	window := o.contextWindow(ctx, sess.id, "")
	img, err := o.images.Selfie(ctx, profileSpec(sess.profile), window, avatarBlob(sess.profile), trigger)
	if err != nil {
		o.log.LogError(err, "selfie generation failed", "session_id", sess.id)
		return o.appendMessage(ctx, sess.id, models.SenderAssistant,
			"I tried to snap one for you but my camera is acting up. Ask me again in a bit?", "")
	}
	return o.appendMessage(ctx, sess.id, models.SenderAssistant, "", models.EncodeImageRef(img.MIMEType, img.Data))
}

func (o *Orchestrator) handleCommand(ctx context.Context, sess *session, cmd Command) ([]models.Message, error) {
	if o.metrics != nil {
		o.metrics.CommandsHandled.WithLabelValues(commandLabel(cmd.Kind)).Inc()
	}

	switch cmd.Kind {
	case CmdStart:
		return o.resetSession(ctx, sess)

	case CmdHelp:
		return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant, HelpText, "")}, nil

	case CmdVoice:
		if sess.profile.IsComplete() {
			return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant,
				"Pick a voice from the list and I'll switch to it.", "")}, nil
		}
		if turn, ok := sess.wizard.RequestVoiceSelection(); ok {
			return o.appendPrompts(ctx, sess.id, turn), nil
		}
		return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant,
			"Tell me your name first, then you can pick my voice.", "")}, nil

	case CmdRepeat:
		if !sess.profile.IsComplete() {
			return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant,
				"Let's finish setting me up first, then I can read replies out loud.", "")}, nil
		}
		sess.profile.AutoPlayReplies = !sess.profile.AutoPlayReplies
		if err := o.profiles.Save(ctx, sess.profile); err != nil {
			o.log.LogError(err, "failed to persist auto-play toggle", "session_id", sess.id)
		}
		confirmation := "Okay, going quiet. Use /repeat to turn my voice back on."
		if sess.profile.AutoPlayReplies {
			confirmation = "From now on I'll read my replies out loud. Use /repeat to stop."
		}
		return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant, confirmation, "")}, nil

	case CmdPhoto:
		return o.runPhotoshoot(ctx, sess, cmd)

	default:
		return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant,
			"I don't know that command. Try /help to see what I can do.", "")}, nil
	}
}

// ResetSession clears the session's profile and transcript and starts setup
// over, exactly as the /start command does.
func (o *Orchestrator) ResetSession(ctx context.Context, sessionID string) ([]models.Message, error) {
	sess := o.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return o.resetSession(ctx, sess)
}

// resetSession wipes everything for the session and starts setup over
func (o *Orchestrator) resetSession(ctx context.Context, sess *session) ([]models.Message, error) {
	if err := o.profiles.Clear(ctx, sess.id); err != nil {
		o.log.LogError(err, "failed to clear profile", "session_id", sess.id)
	}
	if err := o.transcript.Clear(ctx, sess.id); err != nil {
		o.log.LogError(err, "failed to clear transcript", "session_id", sess.id)
	}
	sess.wizard.Reset()
	sess.offers.Clear()
	sess.profile = nil
	sess.loaded = true

	greeting := o.appendMessage(ctx, sess.id, models.SenderAssistant, sess.wizard.FirstQuestion(), "")
	return []models.Message{greeting}, nil
}

func (o *Orchestrator) runPhotoshoot(ctx context.Context, sess *session, cmd Command) ([]models.Message, error) {
	if !sess.profile.IsComplete() {
		return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant,
			"Let's finish setting me up first, then you can commission a photoshoot.", "")}, nil
	}
	if cmd.Description == "" {
		return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant,
			"Tell me what kind of photos you want, like: /photo picnic in the park. You can attach a reference image too.", "")}, nil
	}

	reference := avatarBlob(sess.profile)
	if cmd.InlineRef != "" {
		mimeType, data, err := models.DecodeImageRef(cmd.InlineRef)
		if err != nil {
			return []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant,
				"I couldn't read that reference image, sorry. Try attaching it again?", "")}, nil
		}
		reference = &ai.ImageBlob{MIMEType: mimeType, Data: data}
	}

	out := []models.Message{o.appendMessage(ctx, sess.id, models.SenderAssistant,
		"One photoshoot coming right up!", "")}

	sent, err := o.images.Photoshoot(ctx, profileSpec(sess.profile), cmd.Description, reference, o.opts.PhotoshootCount,
		func(_ int, img *ai.ImageBlob) {
			out = append(out, o.appendMessage(ctx, sess.id, models.SenderAssistant, "",
				models.EncodeImageRef(img.MIMEType, img.Data)))
		})
	if err != nil {
		o.log.LogError(err, "photoshoot failed", "session_id", sess.id, "sent", sent)
		out = append(out, o.appendMessage(ctx, sess.id, models.SenderAssistant,
			"The shoot didn't work out this time, sorry. Maybe try a different description?", ""))
	}
	return out, nil
}

// ChooseVoice records a voice picker result, during setup or mid-session
func (o *Orchestrator) ChooseVoice(ctx context.Context, sessionID string, voiceID *string) ([]models.Message, error) {
	sess := o.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	o.ensureProfile(ctx, sess)

	if sess.profile.IsComplete() {
		if voiceID != nil && !ValidVoiceID(*voiceID) {
			return nil, apperrors.NewBadRequestError("invalid_voice", fmt.Sprintf("unknown voice id %q", *voiceID))
		}
		sess.profile.SelectedVoiceID = voiceID
		if err := o.profiles.Save(ctx, sess.profile); err != nil {
			o.log.LogError(err, "failed to save voice selection", "session_id", sessionID)
			return nil, apperrors.NewInternalServerError("profile_save_failed", "failed to save voice selection")
		}
		confirmation := "Okay, no voice for me then."
		if voiceID != nil {
			confirmation = fmt.Sprintf("From now on I'll speak as %s.", voiceName(*voiceID))
		}
		return []models.Message{o.appendMessage(ctx, sessionID, models.SenderAssistant, confirmation, "")}, nil
	}

	turn, err := sess.wizard.ChooseVoice(voiceID)
	if err != nil {
		return nil, apperrors.NewBadRequestError("invalid_voice_selection", err.Error())
	}
	return o.appendPrompts(ctx, sessionID, turn), nil
}

// ChooseAvatar resolves the portrait pick, promotes the draft into the
// active profile and opens the conversation.
func (o *Orchestrator) ChooseAvatar(ctx context.Context, sessionID string, index int) ([]models.Message, error) {
	sess := o.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	o.ensureProfile(ctx, sess)

	draft, chosen, resetTurn, err := sess.wizard.ChooseAvatar(index)
	if err != nil {
		return nil, apperrors.NewBadRequestError("invalid_avatar_selection", err.Error())
	}
	if resetTurn != nil {
		return o.appendPrompts(ctx, sessionID, resetTurn), nil
	}

	profile := draft.Promote(sessionID, chosen.Data, chosen.MIMEType)
	if err := o.profiles.Save(ctx, profile); err != nil {
		o.log.LogError(err, "failed to save promoted profile", "session_id", sessionID)
		return nil, apperrors.NewInternalServerError("profile_save_failed", "failed to save profile")
	}
	sess.profile = profile
	sess.wizard.Finish()

	out := []models.Message{o.appendMessage(ctx, sessionID, models.SenderAssistant, "",
		models.EncodeImageRef(chosen.MIMEType, chosen.Data))}

	opening, genErr := o.text.GenerateOpeningLine(ctx, profileSpec(profile))
	if genErr != nil || opening == "" {
		opening = fmt.Sprintf("So, %s... what shall we talk about first?", profile.UserName)
	}
	out = append(out, o.appendMessage(ctx, sessionID, models.SenderAssistant, opening, ""))
	return out, nil
}

// AppearanceOptions returns the portraits currently awaiting selection
func (o *Orchestrator) AppearanceOptions(sessionID string) []ai.ImageBlob {
	sess := o.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	options := sess.wizard.Options()
	out := make([]ai.ImageBlob, len(options))
	copy(out, options)
	return out
}

// SessionState summarizes where a session stands, for clients to render
// pickers and setup progress.
type SessionState struct {
	SetupStep       string `json:"setup_step"`
	ProfileComplete bool   `json:"profile_complete"`
	OfferPending    bool   `json:"offer_pending"`
	AutoPlayReplies bool   `json:"auto_play_replies"`
}

func (o *Orchestrator) State(ctx context.Context, sessionID string) SessionState {
	sess := o.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	o.ensureProfile(ctx, sess)

	state := SessionState{
		SetupStep:       sess.wizard.Step().String(),
		ProfileComplete: sess.profile.IsComplete(),
		OfferPending:    sess.offers.Pending(),
	}
	if state.ProfileComplete {
		state.SetupStep = models.StepReady.String()
		state.AutoPlayReplies = sess.profile.AutoPlayReplies
	}
	return state
}

// Transcript pages through the session's message history
func (o *Orchestrator) Transcript(ctx context.Context, sessionID string, limit, offset int) ([]models.Message, int64, error) {
	messages, err := o.transcript.List(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewInternalServerError("transcript_load_failed", "failed to load transcript")
	}
	total, err := o.transcript.Count(ctx, sessionID)
	if err != nil {
		return nil, 0, apperrors.NewInternalServerError("transcript_load_failed", "failed to count transcript")
	}
	return messages, total, nil
}

func (o *Orchestrator) appendPrompts(ctx context.Context, sessionID string, turn *WizardTurn) []models.Message {
	out := make([]models.Message, 0, len(turn.Prompts))
	for _, prompt := range turn.Prompts {
		out = append(out, o.appendMessage(ctx, sessionID, models.SenderAssistant, prompt, ""))
	}
	return out
}

func (o *Orchestrator) appendMessage(ctx context.Context, sessionID, sender, text, imageRef string) models.Message {
	msg := models.Message{
		ExternalID: uuid.NewString(),
		SessionID:  sessionID,
		Sender:     sender,
		Text:       text,
		ImageRef:   imageRef,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.transcript.Append(ctx, &msg); err != nil {
		o.log.LogError(err, "failed to append message", "session_id", sessionID)
	}
	if o.emit != nil {
		o.emit(sessionID, msg)
	}
	return msg
}

// contextWindow serializes the most recent transcript lines, oldest first,
// excluding the message identified by excludeID (the turn's own user input,
// which is passed to the generator separately).
func (o *Orchestrator) contextWindow(ctx context.Context, sessionID, excludeID string) []string {
	messages, err := o.transcript.LastN(ctx, sessionID, o.opts.ContextWindow+1)
	if err != nil {
		o.log.LogError(err, "failed to load context window", "session_id", sessionID)
		return nil
	}
	lines := make([]string, 0, len(messages))
	for i := range messages {
		if excludeID != "" && messages[i].ExternalID == excludeID {
			continue
		}
		lines = append(lines, messages[i].ContextLine())
	}
	if len(lines) > o.opts.ContextWindow {
		lines = lines[len(lines)-o.opts.ContextWindow:]
	}
	return lines
}

// apologyFor maps a generation failure to a user-facing apology
func apologyFor(err error) string {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "I'm a little overwhelmed right now. Give me a minute and try again?"
	}
	switch ai.Classify(err) {
	case ai.ErrKindOverloaded:
		return "I'm a little overwhelmed right now. Give me a minute and try again?"
	case ai.ErrKindAuth:
		return "I can't reach my thoughts right now, something is off on my end. Try again later?"
	default:
		return fallbackReply
	}
}

func commandLabel(kind CommandKind) string {
	switch kind {
	case CmdStart:
		return "start"
	case CmdVoice:
		return "voice"
	case CmdRepeat:
		return "repeat"
	case CmdPhoto:
		return "photo"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

func voiceName(id string) string {
	for _, v := range VoiceCatalog {
		if v.ID == id {
			return v.Name
		}
	}
	return "a new voice"
}

func draftSpec(d profilemodels.Draft) ai.CompanionSpec {
	return ai.CompanionSpec{UserName: d.UserName, Personality: d.Personality, Topics: d.Topics}
}

func profileSpec(p *profilemodels.Profile) ai.CompanionSpec {
	if p == nil {
		return ai.CompanionSpec{}
	}
	return ai.CompanionSpec{UserName: p.UserName, Personality: p.Personality, Topics: p.Topics}
}

func avatarBlob(p *profilemodels.Profile) *ai.ImageBlob {
	if p == nil || len(p.AvatarImage) == 0 {
		return nil
	}
	return &ai.ImageBlob{MIMEType: p.AvatarMIMEType, Data: p.AvatarImage}
}
