package domain

import (
	_ "embed"
	"strings"
)

//go:embed prompts/persona.txt
var defaultPersona string

//go:embed prompts/style.txt
var styleDirective string

// PromptSeparator joins the persona and the style directive.
const PromptSeparator = "\n\n"

// DefaultPersona returns the built-in biographical prompt.
func DefaultPersona() string { return defaultPersona }

// StyleDirective returns the formatting rules sent after the persona.
func StyleDirective() string { return styleDirective }

// SystemInstruction builds the system message content for persona. An empty
// persona falls back to DefaultPersona.
func SystemInstruction(persona string) string {
	if strings.TrimSpace(persona) == "" {
		persona = defaultPersona
	}
	return persona + PromptSeparator + styleDirective
}
