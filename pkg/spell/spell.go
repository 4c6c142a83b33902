// Package spell defines the capability interface for spell-check
// backends used by message input fields hosting clip playback. The
// playback core itself never touches it; backends are selected by
// configured locale rather than inheritance, and the no-op backend is a
// valid choice on platforms without a native checker.
package spell

import "sync"

// Checker is the spell-check capability: word validation plus
// suggestions.
type Checker interface {
	// Check reports whether the word is spelled correctly.
	Check(word string) bool
	// Suggest returns replacement candidates for a misspelled word.
	Suggest(word string) []string
}

// Noop accepts every word and suggests nothing.
type Noop struct{}

// Check always reports true.
func (Noop) Check(string) bool { return true }

// Suggest always returns nil.
func (Noop) Suggest(string) []string { return nil }

var (
	mu       sync.RWMutex
	backends = make(map[string]Checker)
)

// Register installs a backend for a locale, replacing any previous one.
func Register(locale string, c Checker) {
	mu.Lock()
	defer mu.Unlock()
	if c == nil {
		delete(backends, locale)
		return
	}
	backends[locale] = c
}

// ForLocale returns the backend registered for the locale, falling back
// to Noop.
func ForLocale(locale string) Checker {
	mu.RLock()
	defer mu.RUnlock()
	if c, ok := backends[locale]; ok {
		return c
	}
	return Noop{}
}
