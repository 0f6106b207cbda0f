package rules

import (
	"fmt"

	"entry-portal/internal/models"
)

func musicFields(m models.MusicInfo) []field {
	return []field{
		{"work_title", m.WorkTitle},
		{"work_title_kana", m.WorkTitleKana},
		{"work_character", m.WorkCharacter},
		{"copyright_permission", m.CopyrightPermission},
		{"music_title", m.MusicTitle},
		{"artist", m.Artist},
		{"cd_title", m.CDTitle},
		{"record_number", m.RecordNumber},
		{"jasrac_code", m.JASRACCode},
		{"music_type", m.MusicType},
		{"music_data_path", m.MusicDataPath},
	}
}

func soundFields(s models.SoundInfo) []field {
	return []field{
		{"sound_start_timing", s.SoundStartTiming},
		{"chaser_song_designation", s.ChaserSongDesignation},
		{"chaser_song", s.ChaserSong},
		{"fade_out_start_time", s.FadeOutStartTime},
		{"fade_out_complete_time", s.FadeOutCompleteTime},
	}
}

func sceneFields(s models.LightingScene) []field {
	return []field{
		{"time", s.Time},
		{"trigger", s.Trigger},
		{"color_type", s.ColorType},
		{"color_other", s.ColorOther},
		{"image", s.Image},
		{"image_path", s.ImagePath},
		{"notes", s.Notes},
	}
}

func lightingFields(l models.LightingInfo) []field {
	out := []field{{"dance_start_timing", l.DanceStartTiming}}
	for i, sc := range l.Scenes {
		out = append(out, under(fmt.Sprintf("scenes[%d]", i), sceneFields(sc))...)
	}
	return append(out, under("chaser_exit", sceneFields(l.ChaserExit))...)
}

func choreographerFields(c models.ChoreographerInfo) []field {
	return []field{
		{"choreographer1_name", c.Choreographer1Name},
		{"choreographer1_furigana", c.Choreographer1Furigana},
	}
}

func accountFields(a models.RefundAccount) []field {
	return []field{
		{"bank_name", a.BankName},
		{"branch_name", a.BranchName},
		{"account_type", a.AccountType},
		{"account_number", a.AccountNumber},
		{"account_holder", a.AccountHolder},
	}
}

func propsDetailsFields(usage, details string) []field {
	if !is(usage, models.PropsUsed) {
		return nil
	}
	return []field{{"props_details", details}}
}

// EvaluateSemifinals checks the semifinals technical sheet. The payment slip
// must have been uploaded for the stage to be complete.
func EvaluateSemifinals(s *models.SemifinalsInfo, files Attachments) Verdict {
	if s == nil {
		s = &models.SemifinalsInfo{}
	}
	return verdict(
		missing(
			under("music", musicFields(s.Music)),
			under("sound", soundFields(s.Sound)),
			under("lighting", lightingFields(s.Lighting)),
			under("choreographer", choreographerFields(s.Choreographer)),
			[]field{{"props_usage", s.PropsUsage}},
			propsDetailsFields(s.PropsUsage, s.PropsDetails),
			under("account", accountFields(s.Account)),
		),
		missingFiles(files, semifinalsPaymentSlip),
	)
}

// switchFields returns the block's fields when the switch is true. An unset
// switch is itself reported missing; a false switch defers to the copy made
// from semifinals and checks nothing.
func switchFields(name string, sw *bool, block []field) []field {
	switch {
	case sw == nil:
		return []field{{name, ""}}
	case *sw:
		return block
	default:
		return nil
	}
}

// EvaluateFinals checks the finals technical sheet.
func EvaluateFinals(f *models.FinalsInfo) Verdict {
	if f == nil {
		f = &models.FinalsInfo{}
	}
	return verdict(missing(
		switchFields("music_change", f.MusicChange, under("music", musicFields(f.Music))),
		switchFields("sound_change_from_semifinals", f.SoundChange, under("sound", soundFields(f.Sound))),
		switchFields("lighting_change_from_semifinals", f.LightingChange, under("lighting", lightingFields(f.Lighting))),
		switchFields("choreographer_change", f.ChoreographerChange, under("choreographer", choreographerFields(f.Choreographer))),
		[]field{
			{"props_usage", f.PropsUsage},
			{"choreographer_photo_permission", f.ChoreographerPhotoPermission},
			{"choreographer_photo_path", f.ChoreographerPhotoPath},
		},
		propsDetailsFields(f.PropsUsage, f.PropsDetails),
	))
}
