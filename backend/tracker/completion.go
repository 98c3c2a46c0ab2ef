package tracker

import "math"

// CanComplete checks the completion transition guard: the quiz must be
// passed (score at or above the module's passing score, not merely
// attempted) and the challenge must be submitted, both at call time.
func CanComplete(quizScore, passingScore int, quizCompleted, challengeCompleted bool) error {
	quizPassed := quizCompleted && quizScore >= passingScore
	if quizPassed && challengeCompleted {
		return nil
	}
	return &CompletionBlockedError{
		QuizPassed:         quizPassed,
		QuizScore:          quizScore,
		PassingScore:       passingScore,
		ChallengeSubmitted: challengeCompleted,
	}
}

// TotalProgress recomputes the document-level percentage from the completed
// set size. It is never stored independently of the set.
func TotalProgress(completedCount, moduleCount int) int {
	if moduleCount <= 0 {
		return 0
	}
	return int(math.Round(float64(completedCount) / float64(moduleCount) * 100))
}

// FinalProjectUnlocked gates the final project on every module of the
// roadmap being completed. Derived from the count, no stored flag.
func FinalProjectUnlocked(completedCount, moduleCount int) bool {
	return moduleCount > 0 && completedCount == moduleCount
}
