package skill

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovoskit/maclaunch/pkg/apps"
	"github.com/ovoskit/maclaunch/pkg/bus"
	"github.com/ovoskit/maclaunch/pkg/config"
	"github.com/ovoskit/maclaunch/pkg/dialog"
)

type stubRunner struct {
	calls [][]string
}

func (r *stubRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return "", nil
}

func (r *stubRunner) commands() []string {
	var out []string
	for _, call := range r.calls {
		out = append(out, call[0])
	}
	return out
}

type stubProcs struct {
	procs []apps.ProcessInfo
}

func (p *stubProcs) List(context.Context) ([]apps.ProcessInfo, error) {
	return p.procs, nil
}

func (p *stubProcs) Terminate(context.Context, int32) error {
	return nil
}

func newTestSkill(t *testing.T, runner *stubRunner, procs *stubProcs, settings *config.Settings) (*Skill, *bus.Fake) {
	t.Helper()

	dir := t.TempDir()
	for _, bundle := range []string{"Safari.app", "Calculator.app"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, bundle), 0o755))
	}

	catalog, err := apps.NewCatalog(apps.CatalogConfig{Dirs: []string{dir}})
	require.NoError(t, err)

	ctrl := apps.NewController(catalog,
		apps.WithRunner(runner),
		apps.WithProcessManager(procs))

	renderer, err := dialog.NewRenderer("en-us")
	require.NoError(t, err)

	if settings == nil {
		settings = &config.Settings{SkillID: "skill-mac-launcher"}
	}

	fake := bus.NewFake()
	s := New(fake, ctrl, renderer, settings, WithAskTimeout(10*time.Millisecond))
	require.NoError(t, s.Initialize(context.Background()))
	fake.Reset()

	return s, fake
}

func TestInitializeRegisters(t *testing.T) {
	fake := bus.NewFake()

	dir := t.TempDir()
	catalog, err := apps.NewCatalog(apps.CatalogConfig{Dirs: []string{dir}})
	require.NoError(t, err)
	ctrl := apps.NewController(catalog, apps.WithRunner(&stubRunner{}), apps.WithProcessManager(&stubProcs{}))

	renderer, err := dialog.NewRenderer("en-us")
	require.NoError(t, err)

	s := New(fake, ctrl, renderer, &config.Settings{SkillID: "skill-mac-launcher"})
	require.NoError(t, s.Initialize(context.Background()))

	registered := fake.EmittedOfType(MsgRegister)
	require.Len(t, registered, 1)
	assert.Equal(t, "skill-mac-launcher", registered[0].String("skill_id"))
	assert.Equal(t, "mac-launcher", registered[0].String("name"))
}

func TestHandleUtteranceLaunch(t *testing.T) {
	runner := &stubRunner{}
	s, fake := newTestSkill(t, runner, &stubProcs{}, nil)

	handled := s.HandleUtterance(context.Background(), "open safari")
	assert.True(t, handled)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "open", runner.calls[0][0])

	// The spoken confirmation names the application.
	spoken := fake.EmittedOfType(MsgSpeak)
	require.Len(t, spoken, 1)
	assert.Contains(t, spoken[0].String("utterance"), "Safari")
}

func TestHandleUtteranceUnmatched(t *testing.T) {
	runner := &stubRunner{}
	s, fake := newTestSkill(t, runner, &stubProcs{}, nil)

	assert.False(t, s.HandleUtterance(context.Background(), "what time is it"))
	assert.Empty(t, runner.calls)
	assert.Empty(t, fake.Emitted())
}

func TestHandleUtteranceClose(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	s, fake := newTestSkill(t, runner, procs, nil)

	handled := s.HandleUtterance(context.Background(), "close safari")
	assert.True(t, handled)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "osascript", runner.calls[0][0])

	spoken := fake.EmittedOfType(MsgSpeak)
	require.Len(t, spoken, 1)
	assert.Contains(t, spoken[0].String("utterance"), "Safari")
}

func TestCloseNotRunning(t *testing.T) {
	runner := &stubRunner{}
	s, fake := newTestSkill(t, runner, &stubProcs{}, nil)

	handled := s.HandleUtterance(context.Background(), "close safari")
	assert.False(t, handled)
	assert.Empty(t, runner.calls)

	spoken := fake.EmittedOfType(MsgSpeak)
	require.Len(t, spoken, 1)
	assert.Contains(t, spoken[0].String("utterance"), "running")
}

func TestLaunchWhenRunningEmitsAsyncPrompt(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	s, fake := newTestSkill(t, runner, procs, nil)

	handled := s.HandleUtterance(context.Background(), "open safari")
	assert.True(t, handled)
	assert.Empty(t, runner.calls)

	prompts := fake.EmittedOfType("skill-mac-launcher.async_prompt")
	require.Len(t, prompts, 1)
	assert.Equal(t, "Safari", prompts[0].String("app"))
}

func TestAsyncPromptSwitchYes(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	s, fake := newTestSkill(t, runner, procs, nil)

	fake.QueueReply(bus.NewMessage(MsgYesNoResponse, map[string]any{"response": "yes"}))

	assert.True(t, s.HandleAsyncPrompt(context.Background(), "Safari"))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"osascript", "-e", `tell application "Safari" to activate`}, runner.calls[0])

	// already_running announcement plus the acknowledgement.
	assert.Len(t, fake.EmittedOfType(MsgSpeak), 2)
}

func TestAsyncPromptSwitchNoThenLaunchYes(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	s, fake := newTestSkill(t, runner, procs, nil)

	fake.QueueReply(bus.NewMessage(MsgYesNoResponse, map[string]any{"response": "no"}))
	fake.QueueReply(bus.NewMessage(MsgYesNoResponse, map[string]any{"response": "yes"}))

	assert.True(t, s.HandleAsyncPrompt(context.Background(), "Safari"))

	assert.Contains(t, runner.commands(), "open")
	assert.NotContains(t, runner.commands(), "osascript")
}

func TestAsyncPromptLaunchDeclined(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	s, fake := newTestSkill(t, runner, procs, nil)

	fake.QueueReply(bus.NewMessage(MsgYesNoResponse, map[string]any{"response": "no"}))
	fake.QueueReply(bus.NewMessage(MsgYesNoResponse, map[string]any{"response": "no"}))

	assert.True(t, s.HandleAsyncPrompt(context.Background(), "Safari"))
	assert.Empty(t, runner.calls)
}

func TestAsyncPromptExhaustedAnswersLaunches(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	s, fake := newTestSkill(t, runner, procs, nil)

	// No queued replies: every ask goes unanswered. Both question loops
	// run out of retries and the launch proceeds.
	assert.True(t, s.HandleAsyncPrompt(context.Background(), "Safari"))

	assert.Len(t, fake.EmittedOfType(MsgAskYesNo), 2*maxAskRetries)
	assert.Contains(t, runner.commands(), "open")
}

func TestAsyncPromptDisableWindowManager(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	settings := &config.Settings{SkillID: "skill-mac-launcher", DisableWindowManager: true}
	s, fake := newTestSkill(t, runner, procs, settings)

	fake.QueueReply(bus.NewMessage(MsgYesNoResponse, map[string]any{"response": "yes"}))

	assert.True(t, s.HandleAsyncPrompt(context.Background(), "Safari"))

	// The switch question is skipped entirely; yes answers the launch question.
	assert.Len(t, fake.EmittedOfType(MsgAskYesNo), 1)
	assert.Contains(t, runner.commands(), "open")
	assert.NotContains(t, runner.commands(), "osascript")
}

func TestOnUtteranceDispatch(t *testing.T) {
	runner := &stubRunner{}
	s, fake := newTestSkill(t, runner, &stubProcs{}, nil)
	_ = s

	fake.Deliver(context.Background(), bus.NewMessage(MsgUtterance, map[string]any{
		"utterances": []any{"tell me a joke", "open calculator"},
	}))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "open", runner.calls[0][0])
}

func TestSettingsUpdateFromBus(t *testing.T) {
	settings := &config.Settings{SkillID: "skill-mac-launcher"}
	s, fake := newTestSkill(t, &stubRunner{}, &stubProcs{}, settings)
	_ = s

	fake.Deliver(context.Background(), bus.NewMessage(MsgSettingsUpdate, map[string]any{
		"disable_window_manager": true,
	}))

	assert.True(t, settings.DisableWindowManager)
}

func TestReplaceSettings(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	s, fake := newTestSkill(t, runner, procs, nil)

	s.ReplaceSettings(&config.Settings{
		SkillID:              "skill-mac-launcher",
		DisableWindowManager: true,
	})

	fake.QueueReply(bus.NewMessage(MsgYesNoResponse, map[string]any{"response": "yes"}))
	assert.True(t, s.HandleAsyncPrompt(context.Background(), "Safari"))

	// The reloaded settings take effect: the switch question is skipped.
	assert.Len(t, fake.EmittedOfType(MsgAskYesNo), 1)
	assert.Contains(t, runner.commands(), "open")
}

func TestReplaceSettingsConcurrentWithPrompts(t *testing.T) {
	runner := &stubRunner{}
	procs := &stubProcs{procs: []apps.ProcessInfo{{PID: 42, Name: "Safari"}}}
	s, _ := newTestSkill(t, runner, procs, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			s.ReplaceSettings(&config.Settings{
				SkillID:              "skill-mac-launcher",
				DisableWindowManager: i%2 == 0,
			})
		}
	}()

	for i := 0; i < 25; i++ {
		s.HandleAsyncPrompt(context.Background(), "Safari")
	}
	<-done
}

func TestCanAnswer(t *testing.T) {
	s, _ := newTestSkill(t, &stubRunner{}, &stubProcs{}, nil)
	ctx := context.Background()

	assert.True(t, s.CanAnswer(ctx, bus.NewMessage(MsgUtterance, map[string]any{
		"utterance": "open safari",
	})))
	assert.False(t, s.CanAnswer(ctx, bus.NewMessage(MsgUtterance, map[string]any{
		"utterance": "what is the weather",
	})))
}

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		answer   string
		expected string
	}{
		{"yes", "yes"},
		{"Yes please", "yes"},
		{"yeah", "yes"},
		{"sure", "yes"},
		{"no", "no"},
		{"nope", "no"},
		{"no thanks", "no"},
		{"banana", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseYesNo(tt.answer))
		})
	}
}
