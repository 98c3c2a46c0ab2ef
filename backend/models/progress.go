package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoadmapProgress is the per-user progress document for one roadmap.
// CompletedModules is a growing set of module numbers; TotalProgress is
// always recomputed from it. Version backs the optimistic update on the
// completion path.
type RoadmapProgress struct {
	gorm.Model
	UserID                uint           `gorm:"index:idx_user_category,unique"`
	Category              string         `gorm:"size:64;index:idx_user_category,unique"`
	CurrentModule         int            `gorm:"default:1"`
	CompletedModules      datatypes.JSON // JSON array of module numbers
	TotalProgress         int            `gorm:"default:0"` // percent
	StartedAt             time.Time
	FinalProjectSubmitted bool
	FinalProjectAnswer    string `gorm:"type:text"`
	Version               int    `gorm:"default:0"`
}

// CompletedList decodes the completed-modules set. A nil or empty column
// decodes to an empty list.
func (p *RoadmapProgress) CompletedList() []int {
	if len(p.CompletedModules) == 0 {
		return nil
	}
	var ids []int
	if err := json.Unmarshal(p.CompletedModules, &ids); err != nil {
		return nil
	}
	return ids
}

// CompletedSet returns the completed-modules set keyed for membership tests.
func (p *RoadmapProgress) CompletedSet() map[int]bool {
	set := make(map[int]bool)
	for _, id := range p.CompletedList() {
		set[id] = true
	}
	return set
}

// SetCompletedList re-encodes the completed-modules set.
func (p *RoadmapProgress) SetCompletedList(ids []int) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	p.CompletedModules = datatypes.JSON(raw)
	return nil
}

// ModuleState is the per-module sub-state of a progress document. A missing
// row means the module has not been attempted; the store hands back a
// zero-value state for that case instead of an error.
type ModuleState struct {
	gorm.Model
	UserID             uint   `gorm:"index:idx_user_category_module,unique"`
	Category           string `gorm:"size:64;index:idx_user_category_module,unique"`
	ModuleNumber       int    `gorm:"index:idx_user_category_module,unique"`
	QuizScore          int
	QuizCompleted      bool
	ChallengeCompleted bool
	ChallengeAnswer    string `gorm:"type:text"`
	Completed          bool
	CompletedAt        *time.Time
	LastUpdated        time.Time
}
