package confirm

import "strings"

const phrasePrefix = "EXECUTE DISTRIBUTION FOR "

// Phrase is the text the admin must type to unlock the final step.
func Phrase(projectTitle string) string {
	return phrasePrefix + projectTitle
}

// PhraseMatches trims typed and compares it case-insensitively. Inner whitespace must match exactly.
func PhraseMatches(typed, projectTitle string) bool {
	return strings.EqualFold(strings.TrimSpace(typed), Phrase(projectTitle))
}
