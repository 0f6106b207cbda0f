package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stage names one of the seven forms an entry goes through.
type Stage string

const (
	StageBasic        Stage = "basic_info"
	StagePreliminary  Stage = "preliminary_info"
	StageProgram      Stage = "program_info"
	StageSemifinals   Stage = "semifinals_info"
	StageFinals       Stage = "finals_info"
	StageSns          Stage = "sns_info"
	StageApplications Stage = "applications_info"
)

// Stages returns every stage in form order.
func Stages() []Stage {
	return []Stage{
		StageBasic, StagePreliminary, StageProgram, StageSemifinals,
		StageFinals, StageSns, StageApplications,
	}
}

func ParseStage(s string) (Stage, error) {
	for _, st := range Stages() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage: %q", s)
}

// Status is the per-stage progress of an entry.
type Status string

const (
	StatusNotRegistered Status = "not_registered"
	StatusInProgress    Status = "in_progress"
	StatusRegistered    Status = "registered"
)

// Label returns the label shown to participants and admins.
func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "入力中"
	case StatusRegistered:
		return "登録済み"
	default:
		return "未登録"
	}
}

func (s Status) Valid() bool {
	return s == StatusNotRegistered || s == StatusInProgress || s == StatusRegistered
}

// Entry is the root submission of one participant.
type Entry struct {
	ID        string
	Style     string
	TeamName  string
	CreatedAt time.Time

	Statuses map[Stage]Status
}

// StatusOf returns the stored status for a stage, not_registered when unset.
func (e *Entry) StatusOf(st Stage) Status {
	if s, ok := e.Statuses[st]; ok && s.Valid() {
		return s
	}
	return StatusNotRegistered
}

// StageRecord is one stored stage form. Fields is a JSON object.
type StageRecord struct {
	EntryID   string
	Stage     Stage
	Fields    json.RawMessage
	Version   int64
	UpdatedAt time.Time
}

// Patch is a partial update merged over the top-level keys of a stage record.
type Patch map[string]any

// EntryFile is metadata of an attachment uploaded for an entry.
type EntryFile struct {
	EntryID    string
	FileType   string // video, image, pdf
	Purpose    string
	Path       string
	UploadedAt time.Time
}

// FileKey identifies an attachment requirement. An empty Type matches any file type.
type FileKey struct {
	Type    string
	Purpose string
}

func (k FileKey) String() string {
	if k.Type == "" {
		return "file:" + k.Purpose
	}
	return "file:" + k.Type + "/" + k.Purpose
}

const (
	FileTypeVideo = "video"

	PurposePreliminary           = "preliminary"
	PurposeSemifinalsPaymentSlip = "semifinals_payment_slip"
	PurposeSnsPracticeVideo      = "sns_practice_video"
	PurposeSnsIntroductionVideo  = "sns_introduction_highlight_video"
)
