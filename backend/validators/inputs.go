// Package validators defines the request payloads and their validation
// rules. Controllers parse into these structs and reject invalid bodies
// before touching the database.
package validators

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type QuizAnswer struct {
	// Answer is a pointer so that option index 0 survives the required rule.
	QuestionID uint `json:"question_id" validate:"required"`
	Answer     *int `json:"answer" validate:"required,gte=0"`
}

type QuizSubmission struct {
	Answers []QuizAnswer `json:"answers" validate:"required,min=1,dive"`
}

// AnswerMap converts the submission into the question-id keyed form the
// scorer consumes. Map iteration order never affects the score.
func (s *QuizSubmission) AnswerMap() map[uint]int {
	answers := make(map[uint]int, len(s.Answers))
	for _, a := range s.Answers {
		answers[a.QuestionID] = *a.Answer
	}
	return answers
}

type ChallengeSubmission struct {
	Answer string `json:"answer"`
}

type FinalProjectSubmission struct {
	Answer string `json:"answer"`
}

type CreateRoadmapInput struct {
	Category    string `json:"category" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Icon        string `json:"icon" validate:"max=64"`
}

type CreateModuleInput struct {
	Title        string   `json:"title" validate:"required,max=255"`
	Description  string   `json:"description"`
	PassingScore int      `json:"passing_score" validate:"gte=0,lte=100"`
	Requirements []string `json:"requirements"`
	Hints        []string `json:"hints"`
}

type AddQuestionInput struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2"`
	CorrectAnswer int      `json:"correct_answer" validate:"gte=0"`
	Explanation   string   `json:"explanation"`
}

// Check validates a payload and returns per-field messages, or nil when the
// payload is valid.
func Check(input interface{}) map[string]string {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": err.Error()}
	}

	messages := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages[strings.ToLower(fe.Field())] = "failed validation on '" + fe.Tag() + "'"
	}
	return messages
}
