package tracker

import "math"

// QuizQuestion is the slice of the catalog the scorer needs.
type QuizQuestion struct {
	ID            uint
	CorrectAnswer int
}

// ScoreQuiz scores a full quiz submission as a whole percent, rounded half
// up. Every question must be answered; a partial submission fails with
// IncompleteSubmissionError before anything can be persisted.
func ScoreQuiz(questions []QuizQuestion, answers map[uint]int) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}

	answered := 0
	correct := 0
	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		answered++
		if answer == q.CorrectAnswer {
			correct++
		}
	}

	if answered < len(questions) {
		return 0, &IncompleteSubmissionError{Answered: answered, Total: len(questions)}
	}

	return int(math.Round(float64(correct) / float64(len(questions)) * 100)), nil
}
