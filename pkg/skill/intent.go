package skill

import (
	"context"
	"strings"
	"sync"

	"github.com/ovoskit/maclaunch/pkg/apps"
)

// Intent names the two operations the skill understands.
type Intent string

const (
	// IntentLaunch opens an application.
	IntentLaunch Intent = "launch"
	// IntentClose quits an application.
	IntentClose Intent = "close"
)

var (
	launchVerbs = []string{"open up", "open", "launch", "start", "run"}
	closeVerbs  = []string{"close", "quit", "exit", "terminate", "kill", "stop"}
)

// IntentMatch is a recognized utterance: the intent plus the application
// entity it names.
type IntentMatch struct {
	Intent Intent
	// Application is the canonical application name from the catalog.
	Application string
	// Phrase is the raw spoken application phrase.
	Phrase string
	// Score is the catalog match score.
	Score float64
}

// Resolver resolves a spoken application phrase. Satisfied by
// *apps.Controller and by test fakes.
type Resolver interface {
	Resolve(ctx context.Context, spoken string) (apps.Match, error)
}

// Matcher turns raw utterances into IntentMatches. Results are memoized
// per utterance; ClearCache drops the memo after catalog or settings
// changes.
type Matcher struct {
	resolver Resolver

	mu    sync.Mutex
	cache map[string]*IntentMatch
}

// NewMatcher creates a matcher over the given resolver.
func NewMatcher(resolver Resolver) *Matcher {
	return &Matcher{
		resolver: resolver,
		cache:    make(map[string]*IntentMatch),
	}
}

// Match parses an utterance into an IntentMatch, or nil when the
// utterance is not a launch/close phrasing naming a known application.
func (m *Matcher) Match(ctx context.Context, utterance string) *IntentMatch {
	key := strings.ToLower(strings.TrimSpace(utterance))
	if key == "" {
		return nil
	}

	m.mu.Lock()
	if cached, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return cached
	}
	m.mu.Unlock()

	match := m.match(ctx, key)

	m.mu.Lock()
	m.cache[key] = match
	m.mu.Unlock()

	return match
}

func (m *Matcher) match(ctx context.Context, utterance string) *IntentMatch {
	intent, phrase := parseVerb(utterance)
	if phrase == "" {
		return nil
	}

	resolved, err := m.resolver.Resolve(ctx, phrase)
	if err != nil {
		return nil
	}

	return &IntentMatch{
		Intent:      intent,
		Application: resolved.App.Name,
		Phrase:      phrase,
		Score:       resolved.Score,
	}
}

// parseVerb splits an utterance into its leading verb and the remaining
// application phrase. Longer verbs are listed first so "open up safari"
// strips "open up", not "open".
func parseVerb(utterance string) (Intent, string) {
	for _, verb := range launchVerbs {
		if rest, ok := stripVerb(utterance, verb); ok {
			return IntentLaunch, rest
		}
	}
	for _, verb := range closeVerbs {
		if rest, ok := stripVerb(utterance, verb); ok {
			return IntentClose, rest
		}
	}
	return "", ""
}

func stripVerb(utterance, verb string) (string, bool) {
	if !strings.HasPrefix(utterance, verb+" ") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(utterance, verb))
	// Drop filler between the verb and the application name.
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "the "))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "app "))
	return rest, rest != ""
}

// ClearCache drops memoized matches.
func (m *Matcher) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*IntentMatch)
}
