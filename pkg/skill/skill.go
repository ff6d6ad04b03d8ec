// Package skill implements the voice skill: it receives recognized
// utterances from the host message bus, resolves them into launch/close
// intents, drives the application controller, and speaks the outcome back.
package skill

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/bus"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/dialog"
	"github.com/ovoskit/maclaunch/pkg/history"
	"github.com/ovoskit/maclaunch/pkg/logger"
	"github.com/ovoskit/maclaunch/pkg/telemetry"
)

// Bus message types of the host contract.
const (
	// MsgUtterance delivers recognized speech that no intent skill claimed.
	MsgUtterance = "recognizer_loop:utterance"
	// MsgSpeak asks the host to speak a phrase.
	MsgSpeak = "speak"
	// MsgRegister announces the skill to the host.
	MsgRegister = "skill.register"
	// MsgAskYesNo asks the host to pose a yes/no question.
	MsgAskYesNo = "skill.yes_no.ask"
	// MsgYesNoResponse carries the user's answer to a yes/no question.
	MsgYesNoResponse = "skill.yes_no.response"
	// MsgSettingsUpdate delivers a settings change from the host.
	MsgSettingsUpdate = "skill.settings.update"
)

const (
	// maxAskRetries bounds how often an unrecognized yes/no answer is re-asked.
	maxAskRetries = 5

	defaultAskTimeout = 30 * time.Second
)

// Skill wires the bus, the application controller, and the dialog renderer.
type Skill struct {
	id         string
	bus        bus.Bus
	ctrl       *apps.Controller
	matcher    *Matcher
	manifest   *Manifest
	history    *history.Store
	dialog     *dialog.Renderer
	askTimeout time.Duration

	// settingsMu guards settings: bus handlers run on the listen goroutine
	// while config-file reloads arrive from the watcher goroutine.
	settingsMu sync.RWMutex
	settings   *config.Settings
}

// Option configures a Skill.
type Option func(*Skill)

// WithHistory enables usage-history recording.
func WithHistory(store *history.Store) Option {
	return func(s *Skill) { s.history = store }
}

// WithManifest overrides the default manifest.
func WithManifest(m *Manifest) Option {
	return func(s *Skill) { s.manifest = m }
}

// WithAskTimeout overrides how long a yes/no question waits for an answer.
func WithAskTimeout(d time.Duration) Option {
	return func(s *Skill) { s.askTimeout = d }
}

// New creates the skill.
func New(b bus.Bus, ctrl *apps.Controller, renderer *dialog.Renderer, settings *config.Settings, opts ...Option) *Skill {
	s := &Skill{
		id:         settings.SkillID,
		bus:        b,
		ctrl:       ctrl,
		dialog:     renderer,
		settings:   settings,
		matcher:    NewMatcher(ctrl),
		manifest:   DefaultManifest(),
		askTimeout: defaultAskTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize registers the bus handlers and announces the skill.
func (s *Skill) Initialize(ctx context.Context) error {
	s.bus.On(MsgUtterance, s.onUtterance)
	s.bus.On(s.id+".async_prompt", s.onAsyncPrompt)
	s.bus.On(MsgSettingsUpdate, s.onSettingsUpdate)

	return s.bus.Emit(bus.NewMessage(MsgRegister, map[string]any{
		"skill_id":    s.id,
		"name":        s.manifest.Name,
		"description": s.manifest.Description,
	}))
}

// Matcher exposes the intent matcher (for cache clearing after reloads).
func (s *Skill) Matcher() *Matcher {
	return s.matcher
}

// ReplaceSettings swaps in freshly loaded settings, e.g. after the config
// file changed on disk, and clears the intent memo.
func (s *Skill) ReplaceSettings(fresh *config.Settings) {
	s.settingsMu.Lock()
	*s.settings = *fresh
	s.settingsMu.Unlock()

	s.matcher.ClearCache()
}

func (s *Skill) windowManagerDisabled() bool {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings.DisableWindowManager
}

// CanAnswer reports whether any utterance in the message matches a
// launch/close phrasing with an application entity.
func (s *Skill) CanAnswer(ctx context.Context, msg bus.Message) bool {
	for _, utterance := range utterances(msg) {
		if m := s.matcher.Match(ctx, utterance); m != nil && m.Application != "" {
			return true
		}
	}
	return false
}

func (s *Skill) onUtterance(ctx context.Context, msg bus.Message) {
	for _, utterance := range utterances(msg) {
		if s.HandleUtterance(ctx, utterance) {
			return
		}
	}
}

// HandleUtterance is the fallback entry point: it returns true when the
// utterance was handled, false when the host should try other skills.
func (s *Skill) HandleUtterance(ctx context.Context, utterance string) bool {
	ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("utterance", utterance))

	var handled bool
	_ = telemetry.WithSpan(ctx, "skill.handle_utterance", func(ctx context.Context) error {
		handled = s.handleUtterance(ctx, utterance)
		return nil
	}, attribute.String("utterance", utterance))
	return handled
}

func (s *Skill) handleUtterance(ctx context.Context, utterance string) bool {
	match := s.matcher.Match(ctx, utterance)
	if match == nil || match.Application == "" {
		return false
	}

	telemetry.SetAttributes(ctx,
		attribute.String("intent", string(match.Intent)),
		attribute.String("application", match.Application),
	)

	switch match.Intent {
	case IntentLaunch:
		if s.ctrl.IsRunning(ctx, match.Application) {
			// Someone has to ask the user what to do next, and that
			// conversation must not block the host's intent thread.
			return s.emitAsyncPrompt(ctx, match.Application)
		}
		return s.LaunchApp(ctx, match.Application)
	case IntentClose:
		return s.CloseApp(ctx, match.Application)
	default:
		return false
	}
}

func (s *Skill) emitAsyncPrompt(ctx context.Context, app string) bool {
	msg := bus.NewMessage(s.id+".async_prompt", map[string]any{"app": app})
	if err := s.bus.Emit(msg); err != nil {
		logger.G(ctx).WithError(err).Error("failed to emit async prompt")
		return false
	}
	return true
}

func (s *Skill) onAsyncPrompt(ctx context.Context, msg bus.Message) {
	app := msg.String("app")
	if app == "" {
		return
	}
	s.HandleAsyncPrompt(ctx, app)
}

// HandleAsyncPrompt runs the already-running conversation: offer to switch
// to the application, then offer to launch a new instance. Unrecognized
// answers are re-asked up to maxAskRetries times; exhausting the switch
// question falls through to the launch question, and exhausting the launch
// question falls through to launching.
func (s *Skill) HandleAsyncPrompt(ctx context.Context, app string) bool {
	vars := map[string]string{"application": app}
	s.speakDialog(ctx, "already_running", vars)

	if !s.windowManagerDisabled() {
	switchLoop:
		for attempt := 0; attempt < maxAskRetries; attempt++ {
			switch s.askYesNo(ctx, "confirm_switch", vars) {
			case "yes":
				if err := s.ctrl.SwitchTo(ctx, app); err != nil {
					logger.G(ctx).WithError(err).WithField("app", app).Warn("failed to switch to application")
				} else {
					s.acknowledge(ctx)
				}
				return true
			case "no":
				break switchLoop
			}
		}
	}

	for attempt := 0; attempt < maxAskRetries; attempt++ {
		switch s.askYesNo(ctx, "confirm_launch_new", vars) {
		case "yes":
			s.LaunchApp(ctx, app)
			return true
		case "no":
			return true
		}
	}

	// The user never gave a usable answer; launching is what they asked
	// for in the first place.
	s.LaunchApp(ctx, app)
	return true
}

// LaunchApp launches the application and speaks the outcome.
func (s *Skill) LaunchApp(ctx context.Context, name string) bool {
	app, err := s.ctrl.Launch(ctx, name)
	s.record(ctx, name, "launch", err == nil)
	if err != nil {
		s.speakFailure(ctx, err, name, "launch_failed")
		return false
	}

	s.speakDialog(ctx, "launched", map[string]string{"application": app.Name})
	return true
}

// CloseApp closes the application and speaks the outcome.
func (s *Skill) CloseApp(ctx context.Context, name string) bool {
	app, err := s.ctrl.Close(ctx, name)
	s.record(ctx, name, "close", err == nil)
	if err != nil {
		s.speakFailure(ctx, err, name, "close_failed")
		return false
	}

	s.speakDialog(ctx, "closed", map[string]string{"application": app.Name})
	return true
}

func (s *Skill) speakFailure(ctx context.Context, err error, name, fallbackKey string) {
	vars := map[string]string{"application": name}
	switch {
	case errors.Is(err, apps.ErrNotFound):
		s.speakDialog(ctx, "not_found", vars)
	case errors.Is(err, apps.ErrNotRunning):
		s.speakDialog(ctx, "not_running", vars)
	default:
		logger.G(ctx).WithError(err).WithField("app", name).Error("application command failed")
		s.speakDialog(ctx, fallbackKey, vars)
	}
}

func (s *Skill) record(ctx context.Context, app, action string, ok bool) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, app, action, ok); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to record history event")
	}
}

func (s *Skill) onSettingsUpdate(ctx context.Context, msg bus.Message) {
	s.settingsMu.Lock()
	err := s.settings.ApplyUpdate(msg.Data)
	s.settingsMu.Unlock()
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to apply settings update")
		return
	}

	s.matcher.ClearCache()
	logger.G(ctx).Info("settings updated from bus")
}

// speak asks the host to say a phrase.
func (s *Skill) speak(ctx context.Context, phrase string) {
	msg := bus.NewMessage(MsgSpeak, map[string]any{
		"utterance": phrase,
		"skill_id":  s.id,
	})
	if err := s.bus.Emit(msg); err != nil {
		logger.G(ctx).WithError(err).Error("failed to emit speak message")
	}
}

func (s *Skill) speakDialog(ctx context.Context, key string, vars map[string]string) {
	phrase, err := s.dialog.Render(key, vars)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("dialog", key).Error("failed to render dialog")
		return
	}
	s.speak(ctx, phrase)
}

func (s *Skill) acknowledge(ctx context.Context) {
	s.speakDialog(ctx, "acknowledge", nil)
}

// askYesNo poses a yes/no question through the host and normalizes the
// answer to "yes", "no", or "" for anything unrecognized (including
// timeouts).
func (s *Skill) askYesNo(ctx context.Context, dialogKey string, vars map[string]string) string {
	question, err := s.dialog.Render(dialogKey, vars)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("dialog", dialogKey).Error("failed to render question")
		return ""
	}

	msg := bus.NewMessage(MsgAskYesNo, map[string]any{
		"utterance": question,
		"skill_id":  s.id,
	})
	reply, err := s.bus.Request(ctx, msg, MsgYesNoResponse, s.askTimeout)
	if err != nil {
		logger.G(ctx).WithError(err).Debug("yes/no question went unanswered")
		return ""
	}

	return parseYesNo(reply.String("response"))
}

func parseYesNo(answer string) string {
	answer = strings.ToLower(strings.TrimSpace(answer))
	switch {
	case answer == "":
		return ""
	case hasAnyWord(answer, "yes", "yeah", "yep", "sure", "please do", "ok", "okay"):
		return "yes"
	case hasAnyWord(answer, "no", "nope", "nah", "don't", "do not"):
		return "no"
	default:
		return ""
	}
}

func hasAnyWord(answer string, words ...string) bool {
	fields := " " + answer + " "
	for _, word := range words {
		if strings.Contains(fields, " "+word+" ") {
			return true
		}
	}
	return false
}

// utterances extracts the spoken phrases from an utterance message,
// accepting both the single and plural payload shapes.
func utterances(msg bus.Message) []string {
	if list := msg.Strings("utterances"); len(list) > 0 {
		return list
	}
	if single := msg.String("utterance"); single != "" {
		return []string{single}
	}
	return nil
}
