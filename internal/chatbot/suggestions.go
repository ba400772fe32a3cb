package chatbot

// Suggestion is a quick-reply chip shown under the message log.
type Suggestion struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

var defaultSuggestions = []Suggestion{
	{Label: "Projects", Prompt: "Show me your projects"},
	{Label: "Skills", Prompt: "What are your skills?"},
	{Label: "Experience", Prompt: "Tell me about your experience"},
	{Label: "Contact", Prompt: "How can I contact you?"},
}

// Suggestions returns the quick-reply chips in display order.
func (c *Controller) Suggestions() []Suggestion {
	out := make([]Suggestion, len(defaultSuggestions))
	copy(out, defaultSuggestions)
	return out
}

// SubmitSuggestion submits the prompt of the chip with the given label.
// It reports false when no chip matches.
func (c *Controller) SubmitSuggestion(label string) bool {
	for _, s := range defaultSuggestions {
		if s.Label == label {
			return c.Submit(s.Prompt)
		}
	}
	return false
}
