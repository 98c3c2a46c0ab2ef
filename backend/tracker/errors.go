package tracker

import "fmt"

// IncompleteSubmissionError rejects a quiz submission that leaves questions
// unanswered. Nothing is persisted when scoring fails with it.
type IncompleteSubmissionError struct {
	Answered int
	Total    int
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("quiz submission incomplete: %d of %d questions answered", e.Answered, e.Total)
}

// EmptySubmissionError rejects a challenge submission whose text is empty or
// whitespace only.
type EmptySubmissionError struct{}

func (e *EmptySubmissionError) Error() string {
	return "challenge submission is empty"
}

// CompletionBlockedError reports which completion preconditions are unmet so
// the caller can surface them to the user. No state is written when a
// completion attempt fails with it.
type CompletionBlockedError struct {
	QuizPassed         bool
	QuizScore          int
	PassingScore       int
	ChallengeSubmitted bool
}

func (e *CompletionBlockedError) Error() string {
	switch {
	case !e.QuizPassed && !e.ChallengeSubmitted:
		return fmt.Sprintf("completion blocked: quiz score %d below passing score %d and challenge not submitted", e.QuizScore, e.PassingScore)
	case !e.QuizPassed:
		return fmt.Sprintf("completion blocked: quiz score %d below passing score %d", e.QuizScore, e.PassingScore)
	default:
		return "completion blocked: challenge not submitted"
	}
}
