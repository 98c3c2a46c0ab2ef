package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"devpath/backend/config"
	"devpath/backend/controllers"
	"devpath/backend/middleware"
	"devpath/backend/models"
	"devpath/backend/routes"
	"devpath/backend/store"
	"devpath/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	app        *fiber.App
	db         *gorm.DB
	cfg        *config.Config
	adminToken string
	userToken  string
)

func TestMain(m *testing.M) {
	setup()
	os.Exit(m.Run())
}

func setup() {
	cfg = &config.Config{
		JWTSecret:  "testsecret",
		ServerPort: "8080",
	}

	var err error
	db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := utils.Migrate(db); err != nil {
		panic(err)
	}

	app = fiber.New()
	routes.SetupRoutes(app, db, cfg)
}

func doJSON(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp, result
}

func registerAndLogin(t *testing.T, username, role string) string {
	t.Helper()

	resp, _ := doJSON(t, "POST", "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	if role != "user" {
		require.NoError(t, db.Model(&models.User{}).Where("username = ?", username).Update("role", role).Error)
	}

	resp, result := doJSON(t, "POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotEmpty(t, result["token"])
	return result["token"].(string)
}

// questionIDs reads the quiz question ids from the module detail payload.
func questionIDs(t *testing.T, category string, module int, token string) []uint {
	t.Helper()

	resp, result := doJSON(t, "GET", fmt.Sprintf("/api/roadmaps/%s/modules/%d", category, module), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	questions := result["module"].(map[string]interface{})["questions"].([]interface{})
	ids := make([]uint, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, uint(q.(map[string]interface{})["id"].(float64)))
	}
	return ids
}

func quizBody(ids []uint, answers []int) map[string]interface{} {
	payload := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		payload[i] = map[string]interface{}{"question_id": id, "answer": answers[i]}
	}
	return map[string]interface{}{"answers": payload}
}

func TestProgressFlow(t *testing.T) {
	adminToken = registerAndLogin(t, "admin", "admin")
	userToken = registerAndLogin(t, "learner", "user")

	t.Run("AdminSeedsCatalog", func(t *testing.T) {
		resp, _ := doJSON(t, "POST", "/api/admin/roadmaps", adminToken, map[string]string{
			"category": "frontend",
			"title":    "Frontend Developer",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		// Non-admins cannot touch the catalog.
		resp, _ = doJSON(t, "POST", "/api/admin/roadmaps", userToken, map[string]string{
			"category": "backend",
			"title":    "Backend Developer",
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		questionCounts := []int{5, 2, 1, 1}
		for i, count := range questionCounts {
			resp, result := doJSON(t, "POST", "/api/admin/roadmaps/frontend/modules", adminToken, map[string]interface{}{
				"title":         fmt.Sprintf("Module %d", i+1),
				"passing_score": 70,
				"requirements":  []string{"build something"},
			})
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, float64(i+1), result["module"].(map[string]interface{})["module"])

			for q := 0; q < count; q++ {
				resp, _ := doJSON(t, "POST", fmt.Sprintf("/api/admin/roadmaps/frontend/modules/%d/questions", i+1), adminToken, map[string]interface{}{
					"question":       fmt.Sprintf("Question %d", q+1),
					"options":        []string{"right", "wrong", "also wrong", "nope"},
					"correct_answer": 0,
					"explanation":    "the first option is right",
				})
				require.Equal(t, fiber.StatusOK, resp.StatusCode)
			}
		}

		// Correct answer index must point into the options.
		resp, _ = doJSON(t, "POST", "/api/admin/roadmaps/frontend/modules/1/questions", adminToken, map[string]interface{}{
			"question":       "bad",
			"options":        []string{"a", "b"},
			"correct_answer": 5,
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("InitialStatuses", func(t *testing.T) {
		resp, result := doJSON(t, "GET", "/api/roadmaps/frontend", userToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		modules := result["roadmap"].(map[string]interface{})["modules"].([]interface{})
		require.Len(t, modules, 4)
		assert.Equal(t, "unlocked", modules[0].(map[string]interface{})["status"])
		assert.Equal(t, "locked", modules[1].(map[string]interface{})["status"])
		assert.Equal(t, "locked", modules[2].(map[string]interface{})["status"])

		progress := result["progress"].(map[string]interface{})
		assert.Equal(t, float64(1), progress["current_module"])
		assert.Equal(t, float64(0), progress["total_progress"])
		assert.Equal(t, false, progress["final_project_unlocked"])
	})

	t.Run("LockedModuleRejected", func(t *testing.T) {
		resp, _ := doJSON(t, "GET", "/api/roadmaps/frontend/modules/2", userToken, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		resp, _ = doJSON(t, "POST", "/api/roadmaps/frontend/modules/2/challenge", userToken, map[string]string{
			"answer": "sneaking ahead",
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("UnknownRoadmap", func(t *testing.T) {
		resp, _ := doJSON(t, "GET", "/api/roadmaps/underwater-basket-weaving", userToken, nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("IncompleteQuizRejected", func(t *testing.T) {
		ids := questionIDs(t, "frontend", 1, userToken)
		require.Len(t, ids, 5)

		resp, _ := doJSON(t, "POST", "/api/roadmaps/frontend/modules/1/quiz", userToken,
			quizBody(ids[:4], []int{0, 0, 0, 0}))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		// Nothing was persisted for the module.
		resp, result := doJSON(t, "GET", "/api/roadmaps/frontend/modules/1", userToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		state := result["state"].(map[string]interface{})
		assert.Equal(t, false, state["quiz_completed"])
	})

	t.Run("CompletionBlockedBeforeQuizAndChallenge", func(t *testing.T) {
		resp, result := doJSON(t, "POST", "/api/roadmaps/frontend/modules/1/complete", userToken, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		details := result["details"].(map[string]interface{})
		assert.Equal(t, false, details["quiz_passed"])
		assert.Equal(t, false, details["challenge_submitted"])
	})

	t.Run("QuizFourOfFiveScoresEighty", func(t *testing.T) {
		ids := questionIDs(t, "frontend", 1, userToken)

		resp, result := doJSON(t, "POST", "/api/roadmaps/frontend/modules/1/quiz", userToken,
			quizBody(ids, []int{0, 0, 0, 0, 1}))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		quiz := result["quiz"].(map[string]interface{})
		assert.Equal(t, float64(80), quiz["score"])
		assert.Equal(t, true, quiz["passed"])

		results := quiz["results"].([]interface{})
		require.Len(t, results, 5)
		last := results[4].(map[string]interface{})
		assert.Equal(t, false, last["correct"])
		assert.Equal(t, "the first option is right", last["explanation"])
	})

	t.Run("EmptyChallengeRejected", func(t *testing.T) {
		resp, _ := doJSON(t, "POST", "/api/roadmaps/frontend/modules/1/challenge", userToken, map[string]string{
			"answer": "   ",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ChallengeAccepted", func(t *testing.T) {
		resp, result := doJSON(t, "POST", "/api/roadmaps/frontend/modules/1/challenge", userToken, map[string]string{
			"answer": "my solution",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, result["challenge"].(map[string]interface{})["completed"])
	})

	t.Run("CompleteModuleOne", func(t *testing.T) {
		resp, result := doJSON(t, "POST", "/api/roadmaps/frontend/modules/1/complete", userToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		progress := result["progress"].(map[string]interface{})
		assert.Equal(t, float64(2), progress["current_module"])
		assert.Equal(t, float64(25), progress["total_progress"])
		assert.Len(t, progress["completed_modules"].([]interface{}), 1)
	})

	t.Run("CompleteModuleOneAgainIsNoOp", func(t *testing.T) {
		resp, result := doJSON(t, "POST", "/api/roadmaps/frontend/modules/1/complete", userToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		progress := result["progress"].(map[string]interface{})
		assert.Len(t, progress["completed_modules"].([]interface{}), 1)
		assert.Equal(t, float64(25), progress["total_progress"])
	})

	t.Run("ProgressDocumentReflectsCompletion", func(t *testing.T) {
		resp, result := doJSON(t, "GET", "/api/roadmaps/frontend/progress", userToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		assert.Equal(t, float64(2), result["current_module"])
		assert.Equal(t, float64(25), result["total_progress"])
		assert.Equal(t, float64(4), result["total_modules"])

		moduleOne := result["modules"].(map[string]interface{})["1"].(map[string]interface{})
		assert.Equal(t, true, moduleOne["completed"])
		assert.Equal(t, float64(80), moduleOne["quiz_score"])
		assert.NotNil(t, moduleOne["completed_at"])
	})

	t.Run("ModuleTwoUnlockedAndFailedQuizBlocksCompletion", func(t *testing.T) {
		ids := questionIDs(t, "frontend", 2, userToken)
		require.Len(t, ids, 2)

		// 1 of 2 correct: 50 < 70.
		resp, result := doJSON(t, "POST", "/api/roadmaps/frontend/modules/2/quiz", userToken,
			quizBody(ids, []int{0, 1}))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		quiz := result["quiz"].(map[string]interface{})
		assert.Equal(t, float64(50), quiz["score"])
		assert.Equal(t, false, quiz["passed"])

		resp, _ = doJSON(t, "POST", "/api/roadmaps/frontend/modules/2/challenge", userToken, map[string]string{
			"answer": "module two solution",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp, result = doJSON(t, "POST", "/api/roadmaps/frontend/modules/2/complete", userToken, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		details := result["details"].(map[string]interface{})
		assert.Equal(t, float64(50), details["quiz_score"])
		assert.Equal(t, float64(70), details["passing_score"])
	})

	t.Run("FinishRemainingModules", func(t *testing.T) {
		ids := questionIDs(t, "frontend", 2, userToken)
		resp, _ := doJSON(t, "POST", "/api/roadmaps/frontend/modules/2/quiz", userToken,
			quizBody(ids, []int{0, 0}))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp, _ = doJSON(t, "POST", "/api/roadmaps/frontend/modules/2/complete", userToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		for n := 3; n <= 4; n++ {
			ids := questionIDs(t, "frontend", n, userToken)
			resp, _ := doJSON(t, "POST", fmt.Sprintf("/api/roadmaps/frontend/modules/%d/quiz", n), userToken,
				quizBody(ids, []int{0}))
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			resp, _ = doJSON(t, "POST", fmt.Sprintf("/api/roadmaps/frontend/modules/%d/challenge", n), userToken,
				map[string]string{"answer": "done"})
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			resp, _ = doJSON(t, "POST", fmt.Sprintf("/api/roadmaps/frontend/modules/%d/complete", n), userToken, nil)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
		}
	})

	t.Run("FinalProjectGate", func(t *testing.T) {
		resp, result := doJSON(t, "GET", "/api/roadmaps/frontend/final-project", userToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, result["unlocked"])
		assert.Equal(t, float64(4), result["completed_modules"])

		resp, result = doJSON(t, "POST", "/api/roadmaps/frontend/final-project", userToken, map[string]string{
			"answer": "https://example.com/my-capstone",
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, result["submitted"])
	})

	t.Run("Overview", func(t *testing.T) {
		resp, result := doJSON(t, "GET", "/api/progress/overview", userToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), result["roadmaps_started"])
		assert.Equal(t, float64(1), result["roadmaps_completed"])
		assert.Equal(t, float64(4), result["modules_completed"])
	})
}

func TestFinalProjectLockedEarly(t *testing.T) {
	token := registerAndLogin(t, "beginner", "user")

	resp, result := doJSON(t, "GET", "/api/roadmaps/frontend/final-project", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, result["unlocked"])

	resp, _ = doJSON(t, "POST", "/api/roadmaps/frontend/final-project", token, map[string]string{
		"answer": "too soon",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	resp, _ := doJSON(t, "GET", "/api/roadmaps/frontend", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

// A freshly registered user carries the "user" role right away, both in the
// response body and in the issued token.
func TestRegisterTokenCarriesRole(t *testing.T) {
	resp, result := doJSON(t, "POST", "/api/auth/register", "", map[string]string{
		"username": "claimcheck",
		"email":    "claimcheck@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	user := result["user"].(map[string]interface{})
	assert.Equal(t, "user", user["role"])

	parsed, err := jwt.Parse(result["token"].(string), func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user", claims["role"])
}

// A lost optimistic-version race that survives the store's retries surfaces
// as 409 to the client.
func TestCompleteModuleConflictReturns409(t *testing.T) {
	token := registerAndLogin(t, "racer", "user")

	conflictApp := fiber.New()
	pc := controllers.NewProgressController(db, cfg, conflictStore{})
	grp := conflictApp.Group("/api/roadmaps", middleware.AuthMiddleware(cfg))
	grp.Post("/:category/modules/:id/complete", pc.CompleteModule)

	req := httptest.NewRequest("POST", "/api/roadmaps/frontend/modules/1/complete", bytes.NewBuffer(nil))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	resp, err := conflictApp.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

// conflictStore loses every completion write to a concurrent update.
type conflictStore struct{ store.ProgressStore }

func (conflictStore) GetOrCreateProgress(userID uint, category string) (*models.RoadmapProgress, error) {
	return &models.RoadmapProgress{UserID: userID, Category: category, CurrentModule: 1}, nil
}

func (conflictStore) CompleteModule(uint, string, int, int, int) (*models.RoadmapProgress, error) {
	return nil, store.ErrConflict
}

// Active days are counted in local time, so a login just after local
// midnight on the first of the month still falls inside the window.
func TestOverviewActiveDaysIncludesFirstOfMonth(t *testing.T) {
	token := registerAndLogin(t, "earlybird", "user")

	var user models.User
	require.NoError(t, db.Where("username = ?", "earlybird").First(&user).Error)

	now := time.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 30, 0, 0, now.Location())
	require.NoError(t, db.Create(&models.LoginHistory{UserID: user.ID, LoginTime: firstOfMonth}).Error)

	resp, result := doJSON(t, "GET", "/api/progress/overview", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	expected := 2
	if now.Day() == 1 {
		// The login from registerAndLogin lands on the same day.
		expected = 1
	}
	assert.Equal(t, float64(expected), result["active_days"])
}
