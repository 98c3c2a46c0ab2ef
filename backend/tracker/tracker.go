// Package tracker holds the module-progress rules: unlock status, quiz
// scoring, challenge acceptance and the module-completion transition. All
// functions are pure; persistence is the store's concern.
package tracker

// ModuleStatus is the derived access state of a module for one user.
type ModuleStatus string

const (
	StatusLocked    ModuleStatus = "locked"
	StatusUnlocked  ModuleStatus = "unlocked"
	StatusCompleted ModuleStatus = "completed"
)

// Status derives the access state of a module from the completed set.
// Module 1 is always unlocked; module n unlocks once n-1 is completed.
func Status(moduleNumber int, completed map[int]bool) ModuleStatus {
	if completed[moduleNumber] {
		return StatusCompleted
	}
	if moduleNumber == 1 || completed[moduleNumber-1] {
		return StatusUnlocked
	}
	return StatusLocked
}
