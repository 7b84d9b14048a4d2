// Package curriculum holds the static subject to chapter catalog used to
// validate questions, and the per-chapter textbook context added to prompts.
package curriculum

import "golang.org/x/text/unicode/norm"

// Catalog maps each subject to its ordered chapters. It is built once by
// Load and never mutated afterwards, so it is safe for concurrent readers.
type Catalog struct {
	subjects []string
	chapters map[string][]string
	contexts map[string]map[string]string
}

func newCatalog() *Catalog {
	return &Catalog{
		chapters: make(map[string][]string),
		contexts: make(map[string]map[string]string),
	}
}

// add installs a subject, replacing any earlier definition with the same name.
func (c *Catalog) add(s Subject) {
	name := normalize(s.Name)
	if name == "" {
		return
	}
	if _, exists := c.chapters[name]; !exists {
		c.subjects = append(c.subjects, name)
	}

	chapters := make([]string, 0, len(s.Chapters))
	contexts := make(map[string]string)
	seen := make(map[string]bool, len(s.Chapters))
	for _, ch := range s.Chapters {
		chName := normalize(ch.Name)
		if chName == "" || seen[chName] {
			continue
		}
		seen[chName] = true
		chapters = append(chapters, chName)
		if ch.Context != "" {
			contexts[chName] = ch.Context
		}
	}

	c.chapters[name] = chapters
	c.contexts[name] = contexts
}

// IsValid reports whether chapter belongs to subject. Unknown subjects and
// unknown chapters both yield false.
func (c *Catalog) IsValid(subject, chapter string) bool {
	chapter = normalize(chapter)
	for _, ch := range c.chapters[normalize(subject)] {
		if ch == chapter {
			return true
		}
	}
	return false
}

// Context returns the textbook context for a chapter, if one is recorded.
func (c *Catalog) Context(subject, chapter string) (string, bool) {
	ctx, ok := c.contexts[normalize(subject)][normalize(chapter)]
	return ctx, ok && ctx != ""
}

// Subjects returns subject names in presentation order.
func (c *Catalog) Subjects() []string {
	return append([]string(nil), c.subjects...)
}

// Chapters returns the chapters of a subject in presentation order.
func (c *Catalog) Chapters(subject string) []string {
	return append([]string(nil), c.chapters[normalize(subject)]...)
}

// Table returns a copy of the whole subject to chapters mapping.
func (c *Catalog) Table() map[string][]string {
	out := make(map[string][]string, len(c.chapters))
	for subject, chapters := range c.chapters {
		out[subject] = append([]string(nil), chapters...)
	}
	return out
}

// normalize brings names to NFC so composed and decomposed spellings of
// Telugu or Hindi text compare equal.
func normalize(s string) string {
	return norm.NFC.String(s)
}
