// Package dialog renders the spoken responses. Each locale is a YAML file
// mapping a dialog key to phrase variants; rendering picks a variant
// (avoiding back-to-back repeats) and substitutes {placeholder} values.
package dialog

import (
	"embed"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLocale is used when the configured locale has no dialog file.
const DefaultLocale = "en-us"

// Renderer renders dialog keys into spoken phrases for one locale.
type Renderer struct {
	mu      sync.Mutex
	phrases map[string][]string
	last    map[string]int
	rng     *rand.Rand
}

// NewRenderer loads the dialog file for the locale, falling back to
// DefaultLocale when the locale has no file.
func NewRenderer(locale string) (*Renderer, error) {
	raw, err := localeFS.ReadFile(fmt.Sprintf("locales/%s.yaml", locale))
	if err != nil {
		if locale == DefaultLocale {
			return nil, errors.Wrap(err, "failed to read default dialog file")
		}
		return NewRenderer(DefaultLocale)
	}

	var phrases map[string][]string
	if err := yaml.Unmarshal(raw, &phrases); err != nil {
		return nil, errors.Wrapf(err, "failed to parse dialog file for %s", locale)
	}

	return &Renderer{
		phrases: phrases,
		last:    make(map[string]int),
		rng:     rand.New(rand.NewSource(rand.Int63())),
	}, nil
}

// Render returns one phrase for the dialog key with placeholders
// substituted. Consecutive calls for the same key avoid repeating the
// previous variant when more than one exists.
func (r *Renderer) Render(key string, vars map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	variants, ok := r.phrases[key]
	if !ok || len(variants) == 0 {
		return "", errors.Errorf("unknown dialog key %q", key)
	}

	idx := 0
	if len(variants) > 1 {
		idx = r.rng.Intn(len(variants))
		if idx == r.last[key] {
			idx = (idx + 1) % len(variants)
		}
	}
	r.last[key] = idx

	return substitute(variants[idx], vars), nil
}

// Keys returns the dialog keys the renderer knows about.
func (r *Renderer) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.phrases))
	for k := range r.phrases {
		keys = append(keys, k)
	}
	return keys
}

func substitute(phrase string, vars map[string]string) string {
	for name, value := range vars {
		phrase = strings.ReplaceAll(phrase, "{"+name+"}", value)
	}
	return phrase
}
