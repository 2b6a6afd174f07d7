package engine

import (
	"teampulse/internal/engine/textkit"
)

// ExtractTasks runs candidate extraction over free text. source selects
// the email or the meeting-notes heuristics; candidates are returned to
// the caller and nothing is persisted.
func (e Engine) ExtractTasks(text, source string) ([]textkit.Candidate, error) {
	now := e.now().UTC()
	switch source {
	case "email":
		return textkit.ExtractFromEmail(text, "", now), nil
	case "meeting":
		return textkit.ExtractFromMeetingNotes(text, "", now), nil
	}
	return nil, ValidationError{Msg: "Invalid source type"}
}

// AnalyzeSentiment scores free text against the sentiment lexicons.
func (e Engine) AnalyzeSentiment(text string) textkit.Sentiment {
	return textkit.AnalyzeSentiment(text)
}
