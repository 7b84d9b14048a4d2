// Package prompt turns a validated student question into the text sent to
// the generation provider.
package prompt

import (
	_ "embed"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when a request does not name an answer language.
const DefaultLanguage = "English"

const contextLabel = "📄 **CONTEXT**: "

//go:embed templates.yaml
var templatesYAML []byte

// Templates holds the answer-structure template per subject and the
// fallback used for any other subject.
type Templates struct {
	Default  string            `yaml:"default"`
	Subjects map[string]string `yaml:"subjects"`
}

// ForSubject returns the subject's template, or the default one.
func (t Templates) ForSubject(subject string) string {
	if tmpl, ok := t.Subjects[subject]; ok && tmpl != "" {
		return tmpl
	}
	return t.Default
}

// DefaultTemplates parses the embedded template table.
func DefaultTemplates() Templates {
	var t Templates
	if err := yaml.Unmarshal(templatesYAML, &t); err != nil {
		panic(fmt.Sprintf("embedded prompt templates: %v", err))
	}
	if !strings.Contains(t.Default, "{chapter}") || !strings.Contains(t.Default, "{question}") {
		panic("embedded default template must reference {chapter} and {question}")
	}
	return t
}

// Input is everything a prompt is built from. Context is the textbook
// snippet for the chapter; empty means none was found.
type Input struct {
	ClassLevel string
	Subject    string
	Chapter    string
	Question   string
	Language   string
	Context    string
}

// Builder renders prompts from a fixed template table.
type Builder struct {
	templates Templates
}

// NewBuilder creates a Builder over the given templates.
func NewBuilder(t Templates) *Builder {
	return &Builder{templates: t}
}

// Build renders the prompt for in. It never fails: subjects without a
// template use the default one. The same input always yields the same bytes.
func (b *Builder) Build(in Input) string {
	language := in.Language
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}

	// One pass, so placeholder-looking text inside the question stays as typed.
	r := strings.NewReplacer(
		"{class_level}", in.ClassLevel,
		"{subject}", in.Subject,
		"{chapter}", in.Chapter,
		"{question}", in.Question,
		"{language}", language,
	)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are an expert AP SSC Class %s tutor preparing students for board exams.\n\n", in.ClassLevel))
	sb.WriteString("📖 **SUBJECT**: " + in.Subject + "\n")
	sb.WriteString("📚 **CHAPTER**: " + in.Chapter + "\n")
	if in.Context != "" {
		sb.WriteString(contextLabel + in.Context + "\n")
	}
	sb.WriteString("🗣️ **ANSWER LANGUAGE**: " + language + "\n\n")
	sb.WriteString(strings.TrimSpace(r.Replace(b.templates.ForSubject(in.Subject))))
	sb.WriteString("\n")
	return sb.String()
}

// Fingerprint returns a stable hex digest of a rendered prompt.
func Fingerprint(prompt string) string {
	sum := blake2b.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
