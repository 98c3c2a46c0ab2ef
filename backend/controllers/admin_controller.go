package controllers

import (
	"encoding/json"
	"strconv"

	"devpath/backend/config"
	"devpath/backend/models"
	"devpath/backend/utils"
	"devpath/backend/validators"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AdminController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAdminController(db *gorm.DB, cfg *config.Config) *AdminController {
	return &AdminController{DB: db, Cfg: cfg}
}

func (ac *AdminController) CreateRoadmap(c *fiber.Ctx) error {
	var input validators.CreateRoadmapInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fieldErrors := validators.Check(&input); fieldErrors != nil {
		return utils.ValidationError(c, fieldErrors)
	}

	roadmap := models.Roadmap{
		Category:    input.Category,
		Title:       input.Title,
		Description: input.Description,
		Icon:        input.Icon,
	}
	if err := ac.DB.Create(&roadmap).Error; err != nil {
		return utils.Conflict(c, "Could not create roadmap")
	}

	return c.JSON(fiber.Map{
		"message": "Roadmap created",
		"roadmap": fiber.Map{
			"category": roadmap.Category,
			"title":    roadmap.Title,
		},
	})
}

// AddModule appends a module to a roadmap. Module numbers stay dense: the
// new module always takes the next number in sequence.
func (ac *AdminController) AddModule(c *fiber.Ctx) error {
	category := c.Params("category")

	var input validators.CreateModuleInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fieldErrors := validators.Check(&input); fieldErrors != nil {
		return utils.ValidationError(c, fieldErrors)
	}

	roadmap, err := loadRoadmap(ac.DB, category, false)
	if err != nil {
		return roadmapError(c, err)
	}

	var moduleCount int64
	ac.DB.Model(&models.Module{}).Where("roadmap_id = ?", roadmap.ID).Count(&moduleCount)

	requirements, err := json.Marshal(input.Requirements)
	if err != nil {
		return utils.InternalServerError(c, "Could not encode requirements")
	}
	hints, err := json.Marshal(input.Hints)
	if err != nil {
		return utils.InternalServerError(c, "Could not encode hints")
	}

	passingScore := input.PassingScore
	if passingScore == 0 {
		passingScore = 70
	}

	module := models.Module{
		RoadmapID:    roadmap.ID,
		ModuleNumber: int(moduleCount) + 1,
		Title:        input.Title,
		Description:  input.Description,
		PassingScore: passingScore,
		Requirements: datatypes.JSON(requirements),
		Hints:        datatypes.JSON(hints),
	}
	if err := ac.DB.Create(&module).Error; err != nil {
		return utils.InternalServerError(c, "Could not create module")
	}

	return c.JSON(fiber.Map{
		"message": "Module added",
		"module": fiber.Map{
			"module":        module.ModuleNumber,
			"title":         module.Title,
			"passing_score": module.PassingScore,
		},
	})
}

// AddQuestion appends a quiz question to a module. The correct answer index
// must point into the options list.
func (ac *AdminController) AddQuestion(c *fiber.Ctx) error {
	category := c.Params("category")

	moduleNumber, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid module ID")
	}

	var input validators.AddQuestionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if fieldErrors := validators.Check(&input); fieldErrors != nil {
		return utils.ValidationError(c, fieldErrors)
	}
	if input.CorrectAnswer >= len(input.Options) {
		return utils.BadRequest(c, "Invalid correct answer index")
	}

	roadmap, err := loadRoadmap(ac.DB, category, false)
	if err != nil {
		return roadmapError(c, err)
	}
	module := findModule(roadmap, moduleNumber)
	if module == nil {
		return utils.NotFound(c, "Module not found")
	}

	options, err := json.Marshal(input.Options)
	if err != nil {
		return utils.InternalServerError(c, "Could not encode options")
	}

	var questionCount int64
	ac.DB.Model(&models.Question{}).Where("module_id = ?", module.ID).Count(&questionCount)

	question := models.Question{
		ModuleID:      module.ID,
		Question:      input.Question,
		Options:       datatypes.JSON(options),
		CorrectAnswer: input.CorrectAnswer,
		Explanation:   input.Explanation,
		SequenceOrder: int(questionCount) + 1,
	}
	if err := ac.DB.Create(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not create question")
	}

	return c.JSON(fiber.Map{
		"message": "Question added",
		"question": fiber.Map{
			"id":    question.ID,
			"order": question.SequenceOrder,
		},
	})
}

// GetRoadmapAnalytics lists every user's progress on a roadmap.
func (ac *AdminController) GetRoadmapAnalytics(c *fiber.Ctx) error {
	category := c.Params("category")

	if _, err := loadRoadmap(ac.DB, category, false); err != nil {
		return roadmapError(c, err)
	}

	var progresses []models.RoadmapProgress
	if err := ac.DB.Where("category = ?", category).Find(&progresses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	users := make([]fiber.Map, 0, len(progresses))
	for _, progress := range progresses {
		var user models.User
		if err := ac.DB.First(&user, progress.UserID).Error; err != nil {
			continue
		}

		users = append(users, fiber.Map{
			"user_id":           user.ID,
			"username":          user.Username,
			"current_module":    progress.CurrentModule,
			"completed_modules": progress.CompletedList(),
			"total_progress":    progress.TotalProgress,
			"started_at":        progress.StartedAt,
		})
	}

	return c.JSON(fiber.Map{"analytics": users})
}
