// Package store is the persistence adapter for progress documents. All
// writes go through here; the tracker rules stay storage-agnostic.
package store

import (
	"errors"
	"time"

	"devpath/backend/models"
	"devpath/backend/tracker"

	"gorm.io/gorm"
)

var (
	// ErrNotFound reports a missing progress document.
	ErrNotFound = errors.New("progress not found")
	// ErrConflict reports a lost optimistic-version race on the completion
	// path; the retry wrapper re-runs the transaction.
	ErrConflict = errors.New("progress document was modified concurrently")
	// ErrModuleLocked reports a completion attempt on a module whose
	// predecessor is not completed yet.
	ErrModuleLocked = errors.New("previous module not completed")
)

// ProgressStore exposes the operations the controllers need against the
// progress documents of one user.
type ProgressStore interface {
	GetProgress(userID uint, category string) (*models.RoadmapProgress, error)
	GetOrCreateProgress(userID uint, category string) (*models.RoadmapProgress, error)
	GetModuleState(userID uint, category string, moduleNumber int) (*models.ModuleState, error)
	ListModuleStates(userID uint, category string) ([]models.ModuleState, error)
	SaveQuizScore(userID uint, category string, moduleNumber, score int) (*models.ModuleState, error)
	SaveChallenge(userID uint, category string, moduleNumber int, answer string) (*models.ModuleState, error)
	CompleteModule(userID uint, category string, moduleNumber, passingScore, moduleCount int) (*models.RoadmapProgress, error)
	SubmitFinalProject(userID uint, category, answer string) (*models.RoadmapProgress, error)
}

// GormStore implements ProgressStore over a GORM connection.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetProgress(userID uint, category string) (*models.RoadmapProgress, error) {
	var progress models.RoadmapProgress
	err := s.DB.Where("user_id = ? AND category = ?", userID, category).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetOrCreateProgress lazily creates the progress document with defaults on
// the user's first visit to a roadmap.
func (s *GormStore) GetOrCreateProgress(userID uint, category string) (*models.RoadmapProgress, error) {
	progress, err := s.GetProgress(userID, category)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	progress = &models.RoadmapProgress{
		UserID:        userID,
		Category:      category,
		CurrentModule: 1,
		StartedAt:     time.Now(),
	}
	if err := progress.SetCompletedList([]int{}); err != nil {
		return nil, err
	}
	if err := s.DB.Create(progress).Error; err != nil {
		// another session created the document first
		if existing, getErr := s.GetProgress(userID, category); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return progress, nil
}

// GetModuleState returns the per-module sub-state, or a zero-value state
// when the module has not been attempted yet.
func (s *GormStore) GetModuleState(userID uint, category string, moduleNumber int) (*models.ModuleState, error) {
	var state models.ModuleState
	err := s.DB.Where("user_id = ? AND category = ? AND module_number = ?", userID, category, moduleNumber).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.ModuleState{UserID: userID, Category: category, ModuleNumber: moduleNumber}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *GormStore) ListModuleStates(userID uint, category string) ([]models.ModuleState, error) {
	var states []models.ModuleState
	err := s.DB.Where("user_id = ? AND category = ?", userID, category).
		Order("module_number").
		Find(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}

// SaveQuizScore upserts the quiz result for a module. A retake overwrites
// the previous score; it never touches the completed set.
func (s *GormStore) SaveQuizScore(userID uint, category string, moduleNumber, score int) (*models.ModuleState, error) {
	var state *models.ModuleState
	err := withRetry(func() error {
		var innerErr error
		state, innerErr = s.GetModuleState(userID, category, moduleNumber)
		if innerErr != nil {
			return innerErr
		}
		state.QuizScore = score
		state.QuizCompleted = true
		state.LastUpdated = time.Now()
		return s.DB.Save(state).Error
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SaveChallenge upserts the challenge submission for a module. Last
// submission wins.
func (s *GormStore) SaveChallenge(userID uint, category string, moduleNumber int, answer string) (*models.ModuleState, error) {
	var state *models.ModuleState
	err := withRetry(func() error {
		var innerErr error
		state, innerErr = s.GetModuleState(userID, category, moduleNumber)
		if innerErr != nil {
			return innerErr
		}
		state.ChallengeCompleted = true
		state.ChallengeAnswer = answer
		state.LastUpdated = time.Now()
		return s.DB.Save(state).Error
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// CompleteModule runs the completion transition in a transaction with an
// optimistic version check on the progress document. Re-completing an
// already-completed module is a no-op. The guard is re-verified inside the
// transaction so no stale read can complete a module that no longer
// qualifies.
func (s *GormStore) CompleteModule(userID uint, category string, moduleNumber, passingScore, moduleCount int) (*models.RoadmapProgress, error) {
	var result *models.RoadmapProgress
	err := withRetry(func() error {
		return s.DB.Transaction(func(tx *gorm.DB) error {
			var progress models.RoadmapProgress
			if err := tx.Where("user_id = ? AND category = ?", userID, category).First(&progress).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}

			completed := progress.CompletedSet()
			if completed[moduleNumber] {
				result = &progress
				return nil
			}
			if moduleNumber > 1 && !completed[moduleNumber-1] {
				return ErrModuleLocked
			}

			var state models.ModuleState
			if err := tx.Where("user_id = ? AND category = ? AND module_number = ?", userID, category, moduleNumber).
				First(&state).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return tracker.CanComplete(0, passingScore, false, false)
				}
				return err
			}
			if err := tracker.CanComplete(state.QuizScore, passingScore, state.QuizCompleted, state.ChallengeCompleted); err != nil {
				return err
			}

			now := time.Now()
			state.Completed = true
			state.CompletedAt = &now
			state.LastUpdated = now
			if err := tx.Save(&state).Error; err != nil {
				return err
			}

			list := append(progress.CompletedList(), moduleNumber)
			if err := progress.SetCompletedList(list); err != nil {
				return err
			}
			progress.TotalProgress = tracker.TotalProgress(len(list), moduleCount)
			progress.CurrentModule = moduleNumber + 1

			update := tx.Model(&models.RoadmapProgress{}).
				Where("id = ? AND version = ?", progress.ID, progress.Version).
				Updates(map[string]interface{}{
					"completed_modules": progress.CompletedModules,
					"total_progress":    progress.TotalProgress,
					"current_module":    progress.CurrentModule,
					"version":           progress.Version + 1,
				})
			if update.Error != nil {
				return update.Error
			}
			if update.RowsAffected == 0 {
				return ErrConflict
			}

			progress.Version++
			result = &progress
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitFinalProject stores the final project submission. The gate check
// (all modules completed) is the caller's responsibility since it needs the
// catalog's module count.
func (s *GormStore) SubmitFinalProject(userID uint, category, answer string) (*models.RoadmapProgress, error) {
	var progress *models.RoadmapProgress
	err := withRetry(func() error {
		var innerErr error
		progress, innerErr = s.GetProgress(userID, category)
		if innerErr != nil {
			return innerErr
		}
		progress.FinalProjectSubmitted = true
		progress.FinalProjectAnswer = answer
		return s.DB.Save(progress).Error
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}
