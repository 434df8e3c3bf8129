package bot

import "strings"

// Localized user-facing fallback strings. German-language chats get the
// German variants, everything else falls back to English.

func isGerman(languageCode string) bool {
	return strings.HasPrefix(strings.ToLower(languageCode), "de")
}

// inaudibleApology is sent when a voice clip could not be understood.
func inaudibleApology(languageCode string) string {
	if isGerman(languageCode) {
		return "Entschuldigung, ich kann dich nicht verstehen."
	}
	return "Sorry, I couldn't understand you."
}

// errorApology is sent when transcription or the assistant turn fails.
func errorApology(languageCode string) string {
	if isGerman(languageCode) {
		return "Ein Fehler ist aufgetreten. Bitte versuche es erneut."
	}
	return "An error occurred. Please try again."
}
