// Package rules decides whether a stage form is complete.
//
// Every evaluator is a pure function of the typed record, the set of
// attachments known to exist for the entry and the evaluation time. Store
// lookups happen before evaluation (see RequiredFiles), so evaluation itself
// never fails: empty input is simply incomplete.
//
// Required fields are assembled as a union of small sets, one per condition
// (age under 18, two songs, props in use, a switch set to true), and a field
// counts as present when it is non-empty after trimming.
package rules

import (
	"time"

	"entry-portal/internal/models"
	"entry-portal/internal/util"
)

// Verdict is the outcome of evaluating one stage form.
//
// Missing holds paths into the stage's JSON fields: nested blocks are
// dotted and lighting scenes are indexed from zero, e.g. "props_details",
// "music.work_title", "lighting.scenes[2].trigger". Absent attachments are
// reported as "file:<type>/<purpose>", or "file:<purpose>" when any type
// is accepted.
type Verdict struct {
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing"`
}

// Attachments records which required files exist for the entry.
type Attachments map[models.FileKey]bool

func (a Attachments) Has(k models.FileKey) bool {
	return a[k]
}

// RequiredFiles lists the attachment lookups the stage's evaluator consults.
func RequiredFiles(st models.Stage) []models.FileKey {
	switch st {
	case models.StagePreliminary:
		return []models.FileKey{preliminaryVideo}
	case models.StageSemifinals:
		return []models.FileKey{semifinalsPaymentSlip}
	case models.StageSns:
		return []models.FileKey{snsPracticeVideo, snsIntroductionVideo}
	}
	return nil
}

// Evaluate dispatches to the evaluator of the record's stage.
func Evaluate(rec models.Record, files Attachments, now time.Time) Verdict {
	switch r := rec.(type) {
	case *models.BasicInfo:
		return EvaluateBasic(r, now)
	case *models.PreliminaryInfo:
		return EvaluatePreliminary(r, files)
	case *models.ProgramInfo:
		return EvaluateProgram(r)
	case *models.SemifinalsInfo:
		return EvaluateSemifinals(r, files)
	case *models.FinalsInfo:
		return EvaluateFinals(r)
	case *models.SnsInfo:
		return EvaluateSns(r, files)
	case *models.ApplicationsInfo:
		return EvaluateApplications(r)
	}
	return Verdict{}
}

// EvaluateStage decodes raw stage fields and evaluates them. The error only
// reports undecodable input.
func EvaluateStage(st models.Stage, fields []byte, files Attachments, now time.Time) (Verdict, error) {
	rec, err := models.DecodeRecord(st, fields)
	if err != nil {
		return Verdict{}, err
	}
	return Evaluate(rec, files, now), nil
}

// field is a named form value checked for presence.
type field struct {
	name  string
	value string
}

// under prefixes field names with the JSON key of their enclosing block.
func under(path string, fields []field) []field {
	out := make([]field, len(fields))
	for i, f := range fields {
		out[i] = field{path + "." + f.name, f.value}
	}
	return out
}

func flag(name string, set bool) field {
	if set {
		return field{name, "true"}
	}
	return field{name, ""}
}

// missing returns the names of blank fields across the union of sets, in
// order of first appearance.
func missing(sets ...[]field) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, set := range sets {
		for _, f := range set {
			if seen[f.name] {
				continue
			}
			seen[f.name] = true
			if util.Blank(f.value) {
				out = append(out, f.name)
			}
		}
	}
	return out
}

func missingFiles(files Attachments, keys ...models.FileKey) []string {
	out := []string{}
	for _, k := range keys {
		if !files.Has(k) {
			out = append(out, k.String())
		}
	}
	return out
}

func verdict(missing ...[]string) Verdict {
	v := Verdict{Missing: []string{}}
	for _, m := range missing {
		v.Missing = append(v.Missing, m...)
	}
	v.Complete = len(v.Missing) == 0
	return v
}

func is(value, want string) bool {
	return util.NormalizeText(value) == want
}
