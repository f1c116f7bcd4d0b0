package transform

import "github.com/cc-switch/proxy/internal/transform/anthropicopenai"

// NewRegistry builds the static transformer registry with the built-in
// Anthropic<->OpenAI pair registered. Gemini pairs are reserved slots:
// no entry is registered for them yet.
func NewRegistry() *Registry {
	r := &Registry{}

	r.register(FormatAnthropic, FormatOpenAI, anthropicopenai.AnthropicToOpenAI{})
	r.register(FormatOpenAI, FormatAnthropic, anthropicopenai.OpenAIToAnthropic{})

	return r
}
