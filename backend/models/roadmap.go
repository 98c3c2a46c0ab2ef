package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roadmap is one career track: an ordered curriculum of modules identified
// by a unique category key (e.g. "frontend", "devops").
type Roadmap struct {
	gorm.Model
	Category    string `gorm:"size:64;uniqueIndex;not null"`
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Icon        string `gorm:"size:64"`
	Modules     []Module
}

// Module is one learning unit inside a roadmap. ModuleNumber is dense and
// 1-based within its roadmap; unlock gating keys off it.
type Module struct {
	gorm.Model
	RoadmapID    uint `gorm:"index"`
	ModuleNumber int  `gorm:"index"`
	Title        string
	Description  string         `gorm:"type:text"`
	PassingScore int            `gorm:"default:70"` // percent required to pass the quiz
	Requirements datatypes.JSON // challenge requirements, JSON array of strings
	Hints        datatypes.JSON // optional challenge hints, JSON array of strings
	Questions    []Question
}

type Question struct {
	gorm.Model
	ModuleID      uint           `gorm:"index"`
	Question      string         `gorm:"type:text"`
	Options       datatypes.JSON // JSON array of option strings
	CorrectAnswer int            // index into Options
	Explanation   string         `gorm:"type:text"`
	SequenceOrder int
}
