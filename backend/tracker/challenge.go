package tracker

import "strings"

// ValidateChallenge accepts any non-empty submission text. Challenges are
// free text and never auto-graded; presence is the whole acceptance rule.
func ValidateChallenge(text string) error {
	if strings.TrimSpace(text) == "" {
		return &EmptySubmissionError{}
	}
	return nil
}
