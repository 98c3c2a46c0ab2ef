package controllers

import (
	"errors"
	"strconv"
	"time"

	"devpath/backend/config"
	"devpath/backend/middleware"
	"devpath/backend/models"
	"devpath/backend/store"
	"devpath/backend/tracker"
	"devpath/backend/utils"
	"devpath/backend/validators"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProgressController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Store store.ProgressStore
}

func NewProgressController(db *gorm.DB, cfg *config.Config, st store.ProgressStore) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, Store: st}
}

// SubmitQuiz scores a quiz submission and persists the result. Validation
// runs before any write: an incomplete submission is rejected and the
// module state stays untouched. A retake overwrites the previous score but
// never removes the module from the completed set.
func (pc *ProgressController) SubmitQuiz(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	category := c.Params("category")

	moduleNumber, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid module ID")
	}

	var input validators.QuizSubmission
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fieldErrors := validators.Check(&input); fieldErrors != nil {
		return utils.ValidationError(c, fieldErrors)
	}

	roadmap, err := loadRoadmap(pc.DB, category, true)
	if err != nil {
		return roadmapError(c, err)
	}
	module := findModule(roadmap, moduleNumber)
	if module == nil {
		return utils.NotFound(c, "Module not found")
	}

	progress, err := pc.Store.GetOrCreateProgress(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}
	if tracker.Status(moduleNumber, progress.CompletedSet()) == tracker.StatusLocked {
		return utils.Forbidden(c, "Module is locked: complete the previous module first")
	}

	questions := make([]tracker.QuizQuestion, 0, len(module.Questions))
	for _, q := range module.Questions {
		questions = append(questions, tracker.QuizQuestion{ID: q.ID, CorrectAnswer: q.CorrectAnswer})
	}

	answers := input.AnswerMap()
	score, err := tracker.ScoreQuiz(questions, answers)
	if err != nil {
		var incomplete *tracker.IncompleteSubmissionError
		if errors.As(err, &incomplete) {
			return utils.Error(c, fiber.StatusBadRequest, err.Error(), fiber.Map{
				"answered": incomplete.Answered,
				"total":    incomplete.Total,
			})
		}
		return utils.InternalServerError(c, "Could not score quiz")
	}

	state, err := pc.Store.SaveQuizScore(userID, category, moduleNumber, score)
	if err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	results := make([]fiber.Map, 0, len(module.Questions))
	for _, q := range module.Questions {
		results = append(results, fiber.Map{
			"question_id":    q.ID,
			"correct":        answers[q.ID] == q.CorrectAnswer,
			"correct_answer": q.CorrectAnswer,
			"explanation":    q.Explanation,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Quiz submitted",
		"quiz": fiber.Map{
			"score":         score,
			"passing_score": module.PassingScore,
			"passed":        score >= module.PassingScore,
			"results":       results,
			"last_updated":  state.LastUpdated,
		},
	})
}

// SubmitChallenge persists a free-text challenge submission. Acceptance is
// presence of non-empty text; submissions are never auto-graded.
func (pc *ProgressController) SubmitChallenge(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	category := c.Params("category")

	moduleNumber, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid module ID")
	}

	var input validators.ChallengeSubmission
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := tracker.ValidateChallenge(input.Answer); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	roadmap, err := loadRoadmap(pc.DB, category, false)
	if err != nil {
		return roadmapError(c, err)
	}
	if findModule(roadmap, moduleNumber) == nil {
		return utils.NotFound(c, "Module not found")
	}

	progress, err := pc.Store.GetOrCreateProgress(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}
	if tracker.Status(moduleNumber, progress.CompletedSet()) == tracker.StatusLocked {
		return utils.Forbidden(c, "Module is locked: complete the previous module first")
	}

	state, err := pc.Store.SaveChallenge(userID, category, moduleNumber, input.Answer)
	if err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	return c.JSON(fiber.Map{
		"message": "Challenge submitted",
		"challenge": fiber.Map{
			"completed":    state.ChallengeCompleted,
			"last_updated": state.LastUpdated,
		},
	})
}

// CompleteModule runs the completion transition: quiz passed and challenge
// submitted unlock the next module and recompute total progress. Completing
// an already-completed module is a no-op.
func (pc *ProgressController) CompleteModule(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	category := c.Params("category")

	moduleNumber, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid module ID")
	}

	roadmap, err := loadRoadmap(pc.DB, category, false)
	if err != nil {
		return roadmapError(c, err)
	}
	module := findModule(roadmap, moduleNumber)
	if module == nil {
		return utils.NotFound(c, "Module not found")
	}

	if _, err := pc.Store.GetOrCreateProgress(userID, category); err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	progress, err := pc.Store.CompleteModule(userID, category, moduleNumber, module.PassingScore, len(roadmap.Modules))
	if err != nil {
		var blocked *tracker.CompletionBlockedError
		switch {
		case errors.As(err, &blocked):
			return utils.Error(c, fiber.StatusForbidden, err.Error(), fiber.Map{
				"quiz_passed":         blocked.QuizPassed,
				"quiz_score":          blocked.QuizScore,
				"passing_score":       blocked.PassingScore,
				"challenge_submitted": blocked.ChallengeSubmitted,
			})
		case errors.Is(err, store.ErrModuleLocked):
			return utils.Forbidden(c, "Module is locked: complete the previous module first")
		case errors.Is(err, store.ErrConflict):
			return utils.Conflict(c, "Progress was modified concurrently, please retry")
		case errors.Is(err, store.ErrNotFound):
			return utils.NotFound(c, "Progress not found")
		default:
			return utils.InternalServerError(c, "Could not save progress")
		}
	}

	return c.JSON(fiber.Map{
		"message": "Module completed",
		"progress": fiber.Map{
			"current_module":         progress.CurrentModule,
			"completed_modules":      progress.CompletedList(),
			"total_progress":         progress.TotalProgress,
			"final_project_unlocked": tracker.FinalProjectUnlocked(len(progress.CompletedList()), len(roadmap.Modules)),
		},
	})
}

// GetFinalProject reports whether the final project gate is open. The gate
// is derived from the completed count, never stored.
func (pc *ProgressController) GetFinalProject(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	category := c.Params("category")

	roadmap, err := loadRoadmap(pc.DB, category, false)
	if err != nil {
		return roadmapError(c, err)
	}

	progress, err := pc.Store.GetOrCreateProgress(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	completedCount := len(progress.CompletedList())
	return c.JSON(fiber.Map{
		"unlocked":          tracker.FinalProjectUnlocked(completedCount, len(roadmap.Modules)),
		"completed_modules": completedCount,
		"total_modules":     len(roadmap.Modules),
		"submitted":         progress.FinalProjectSubmitted,
	})
}

// SubmitFinalProject accepts the final project once every module of the
// roadmap is completed.
func (pc *ProgressController) SubmitFinalProject(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	category := c.Params("category")

	var input validators.FinalProjectSubmission
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := tracker.ValidateChallenge(input.Answer); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	roadmap, err := loadRoadmap(pc.DB, category, false)
	if err != nil {
		return roadmapError(c, err)
	}

	progress, err := pc.Store.GetOrCreateProgress(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}
	if !tracker.FinalProjectUnlocked(len(progress.CompletedList()), len(roadmap.Modules)) {
		return utils.Forbidden(c, "Final project is locked: complete all modules first")
	}

	progress, err = pc.Store.SubmitFinalProject(userID, category, input.Answer)
	if err != nil {
		return utils.InternalServerError(c, "Could not save progress")
	}

	return c.JSON(fiber.Map{
		"message":   "Final project submitted",
		"submitted": progress.FinalProjectSubmitted,
	})
}

// GetOverview summarizes the user's activity across all roadmaps.
func (pc *ProgressController) GetOverview(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var progresses []models.RoadmapProgress
	if err := pc.DB.Where("user_id = ?", userID).Find(&progresses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var modulesCompleted int64
	pc.DB.Model(&models.ModuleState{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&modulesCompleted)

	roadmapsCompleted := 0
	roadmaps := make([]fiber.Map, 0, len(progresses))
	for _, p := range progresses {
		if p.TotalProgress == 100 {
			roadmapsCompleted++
		}
		roadmaps = append(roadmaps, fiber.Map{
			"category":          p.Category,
			"current_module":    p.CurrentModule,
			"completed_modules": p.CompletedList(),
			"total_progress":    p.TotalProgress,
			"started_at":        p.StartedAt,
		})
	}

	// Active days this month, from login history. Login timestamps are
	// stored in local time, so the window uses the same location.
	now := time.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var logins []models.LoginHistory
	pc.DB.Where("user_id = ? AND login_time >= ?", userID, startOfMonth).Find(&logins)

	activeDays := make(map[string]bool)
	for _, login := range logins {
		activeDays[login.LoginTime.Format("2006-01-02")] = true
	}

	return c.JSON(fiber.Map{
		"roadmaps_started":   len(progresses),
		"roadmaps_completed": roadmapsCompleted,
		"modules_completed":  modulesCompleted,
		"active_days":        len(activeDays),
		"roadmaps":           roadmaps,
	})
}
