package controllers

import (
	"encoding/json"
	"errors"
	"strconv"

	"devpath/backend/config"
	"devpath/backend/middleware"
	"devpath/backend/models"
	"devpath/backend/store"
	"devpath/backend/tracker"
	"devpath/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RoadmapsController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Store store.ProgressStore
}

func NewRoadmapsController(db *gorm.DB, cfg *config.Config, st store.ProgressStore) *RoadmapsController {
	return &RoadmapsController{DB: db, Cfg: cfg, Store: st}
}

func (rc *RoadmapsController) GetRoadmaps(c *fiber.Ctx) error {
	var roadmaps []models.Roadmap
	if err := rc.DB.Preload("Modules").Find(&roadmaps).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(roadmaps))
	for _, roadmap := range roadmaps {
		result = append(result, fiber.Map{
			"category":    roadmap.Category,
			"title":       roadmap.Title,
			"description": roadmap.Description,
			"icon":        roadmap.Icon,
			"modules":     len(roadmap.Modules),
		})
	}

	return c.JSON(fiber.Map{"roadmaps": result})
}

// GetRoadmapDetails returns the roadmap with the per-module status the
// requesting user sees: completed, unlocked or locked.
func (rc *RoadmapsController) GetRoadmapDetails(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	category := c.Params("category")

	roadmap, err := loadRoadmap(rc.DB, category, false)
	if err != nil {
		return roadmapError(c, err)
	}

	progress, err := rc.Store.GetOrCreateProgress(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}
	completed := progress.CompletedSet()

	states, err := rc.Store.ListModuleStates(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}
	stateByModule := make(map[int]models.ModuleState, len(states))
	for _, s := range states {
		stateByModule[s.ModuleNumber] = s
	}

	modules := make([]fiber.Map, 0, len(roadmap.Modules))
	for _, module := range roadmap.Modules {
		state := stateByModule[module.ModuleNumber]
		modules = append(modules, fiber.Map{
			"module":              module.ModuleNumber,
			"title":               module.Title,
			"description":         module.Description,
			"passing_score":       module.PassingScore,
			"status":              tracker.Status(module.ModuleNumber, completed),
			"quiz_score":          state.QuizScore,
			"quiz_completed":      state.QuizCompleted,
			"challenge_completed": state.ChallengeCompleted,
		})
	}

	return c.JSON(fiber.Map{
		"roadmap": fiber.Map{
			"category":    roadmap.Category,
			"title":       roadmap.Title,
			"description": roadmap.Description,
			"icon":        roadmap.Icon,
			"modules":     modules,
		},
		"progress": fiber.Map{
			"current_module":         progress.CurrentModule,
			"completed_modules":      progress.CompletedList(),
			"total_progress":         progress.TotalProgress,
			"started_at":             progress.StartedAt,
			"final_project_unlocked": tracker.FinalProjectUnlocked(len(progress.CompletedList()), len(roadmap.Modules)),
		},
	})
}

// GetModuleDetails returns one module's content with its quiz questions.
// Correct answers and explanations stay server-side until the quiz is
// submitted. Locked modules are rejected.
func (rc *RoadmapsController) GetModuleDetails(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	category := c.Params("category")

	moduleNumber, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid module ID")
	}

	roadmap, err := loadRoadmap(rc.DB, category, true)
	if err != nil {
		return roadmapError(c, err)
	}

	module := findModule(roadmap, moduleNumber)
	if module == nil {
		return utils.NotFound(c, "Module not found")
	}

	progress, err := rc.Store.GetOrCreateProgress(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}
	if tracker.Status(moduleNumber, progress.CompletedSet()) == tracker.StatusLocked {
		return utils.Forbidden(c, "Module is locked: complete the previous module first")
	}

	state, err := rc.Store.GetModuleState(userID, category, moduleNumber)
	if err != nil {
		return utils.InternalServerError(c, "Could not load module state")
	}

	questions := make([]fiber.Map, 0, len(module.Questions))
	for _, q := range module.Questions {
		var options []string
		json.Unmarshal(q.Options, &options)

		questions = append(questions, fiber.Map{
			"id":       q.ID,
			"question": q.Question,
			"options":  options,
			"order":    q.SequenceOrder,
		})
	}

	var requirements, hints []string
	json.Unmarshal(module.Requirements, &requirements)
	json.Unmarshal(module.Hints, &hints)

	return c.JSON(fiber.Map{
		"module": fiber.Map{
			"module":        module.ModuleNumber,
			"title":         module.Title,
			"description":   module.Description,
			"passing_score": module.PassingScore,
			"questions":     questions,
			"challenge": fiber.Map{
				"requirements": requirements,
				"hints":        hints,
			},
		},
		"state": fiber.Map{
			"quiz_score":          state.QuizScore,
			"quiz_completed":      state.QuizCompleted,
			"challenge_completed": state.ChallengeCompleted,
			"challenge_answer":    state.ChallengeAnswer,
			"completed":           state.Completed,
		},
	})
}

// GetRoadmapProgress returns the progress document, creating it with
// defaults on first visit.
func (rc *RoadmapsController) GetRoadmapProgress(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	category := c.Params("category")

	roadmap, err := loadRoadmap(rc.DB, category, false)
	if err != nil {
		return roadmapError(c, err)
	}

	progress, err := rc.Store.GetOrCreateProgress(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	states, err := rc.Store.ListModuleStates(userID, category)
	if err != nil {
		return utils.InternalServerError(c, "Could not load progress")
	}

	moduleStates := make(map[string]fiber.Map, len(states))
	for _, s := range states {
		moduleStates[strconv.Itoa(s.ModuleNumber)] = fiber.Map{
			"quiz_score":          s.QuizScore,
			"quiz_completed":      s.QuizCompleted,
			"challenge_completed": s.ChallengeCompleted,
			"completed":           s.Completed,
			"completed_at":        s.CompletedAt,
			"last_updated":        s.LastUpdated,
		}
	}

	return c.JSON(fiber.Map{
		"category":          progress.Category,
		"current_module":    progress.CurrentModule,
		"completed_modules": progress.CompletedList(),
		"total_progress":    progress.TotalProgress,
		"started_at":        progress.StartedAt,
		"modules":           moduleStates,
		"total_modules":     len(roadmap.Modules),
	})
}

func loadRoadmap(db *gorm.DB, category string, withQuestions bool) (*models.Roadmap, error) {
	query := db.Preload("Modules", func(db *gorm.DB) *gorm.DB {
		return db.Order("module_number")
	})
	if withQuestions {
		query = query.Preload("Modules.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order")
		})
	}

	var roadmap models.Roadmap
	if err := query.Where("category = ?", category).First(&roadmap).Error; err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func roadmapError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFound(c, "Roadmap not found")
	}
	return utils.InternalServerError(c, "Could not query database")
}

func findModule(roadmap *models.Roadmap, moduleNumber int) *models.Module {
	for i := range roadmap.Modules {
		if roadmap.Modules[i].ModuleNumber == moduleNumber {
			return &roadmap.Modules[i]
		}
	}
	return nil
}
