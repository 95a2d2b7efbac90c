package interaction

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CommandKind classifies a voice command.
type CommandKind string

// Command kinds.
const (
	CommandUnknown  CommandKind = "unknown"
	CommandIdentity CommandKind = "identity"
	CommandLaunch   CommandKind = "launch"
	CommandExit     CommandKind = "exit"
)

// Vocabulary holds the locale-specific keywords of each command. Matching is
// case-insensitive substring containment.
type Vocabulary struct {
	Locale   language.Tag
	Identity []string
	Launch   []string
	Exit     []string
}

// DefaultVocabulary returns the Ukrainian command keywords.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Locale:   language.Ukrainian,
		Identity: []string{"хто я"},
		Launch:   []string{"відкрий", "запусти"},
		Exit:     []string{"вихід", "вийти", "до побачення"},
	}
}

// Normalize lowercases text for the vocabulary locale and collapses spaces.
func (v Vocabulary) Normalize(text string) string {
	lower := cases.Lower(v.Locale).String(text)
	return strings.Join(strings.Fields(lower), " ")
}

// Classify returns the kind of the utterance. Exit is checked first so it
// cannot be shadowed.
func (v Vocabulary) Classify(text string) CommandKind {
	norm := v.Normalize(text)
	switch {
	case v.containsAny(norm, v.Exit):
		return CommandExit
	case v.containsAny(norm, v.Identity):
		return CommandIdentity
	case v.containsAny(norm, v.Launch):
		return CommandLaunch
	default:
		return CommandUnknown
	}
}

// ClassifyWith is Classify, except that an utterance naming an application
// in cat is a launch even without a launch verb.
func (v Vocabulary) ClassifyWith(text string, cat Catalog) CommandKind {
	kind := v.Classify(text)
	if kind != CommandUnknown || cat == nil {
		return kind
	}
	if _, ok := cat.Lookup(text); ok {
		return CommandLaunch
	}
	return CommandUnknown
}

func (v Vocabulary) containsAny(norm string, keywords []string) bool {
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(norm, v.Normalize(k)) {
			return true
		}
	}
	return false
}

// Application is a launchable program known to the voice launcher.
type Application struct {
	Keyword string `json:"keyword" toml:"keyword" yaml:"keyword"`
	Name    string `json:"name" toml:"name" yaml:"name"`
	Path    string `json:"path" toml:"path" yaml:"path"`
}

// Catalog resolves an utterance to an application.
type Catalog interface {
	Lookup(utterance string) (Application, bool)
}

// StaticCatalog is a Catalog over a fixed list, matched by keyword.
type StaticCatalog struct {
	vocab Vocabulary
	apps  []Application
}

// NewStaticCatalog creates a catalog matching keywords with vocab's locale rules.
func NewStaticCatalog(vocab Vocabulary, apps []Application) *StaticCatalog {
	return &StaticCatalog{vocab: vocab, apps: append([]Application(nil), apps...)}
}

// Lookup returns the first application whose keyword occurs in utterance.
func (c *StaticCatalog) Lookup(utterance string) (Application, bool) {
	norm := c.vocab.Normalize(utterance)
	for _, app := range c.apps {
		if app.Keyword != "" && strings.Contains(norm, c.vocab.Normalize(app.Keyword)) {
			return app, true
		}
	}
	return Application{}, false
}
