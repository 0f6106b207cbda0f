package rules

import "entry-portal/internal/models"

var (
	preliminaryVideo      = models.FileKey{Type: models.FileTypeVideo, Purpose: models.PurposePreliminary}
	semifinalsPaymentSlip = models.FileKey{Purpose: models.PurposeSemifinalsPaymentSlip}
	snsPracticeVideo      = models.FileKey{Type: models.FileTypeVideo, Purpose: models.PurposeSnsPracticeVideo}
	snsIntroductionVideo  = models.FileKey{Type: models.FileTypeVideo, Purpose: models.PurposeSnsIntroductionVideo}
)

// EvaluatePreliminary requires the preliminary fields and the preliminary video.
// Without the video the stage is incomplete whatever the fields hold.
func EvaluatePreliminary(p *models.PreliminaryInfo, files Attachments) Verdict {
	if p == nil {
		p = &models.PreliminaryInfo{}
	}
	return verdict(
		missing([]field{
			{"work_title", p.WorkTitle},
			{"work_title_kana", p.WorkTitleKana},
			{"work_story", p.WorkStory},
			{"music_rights_cleared", p.MusicRightsCleared},
			{"music_title", p.MusicTitle},
			{"cd_title", p.CDTitle},
			{"artist", p.Artist},
			{"record_number", p.RecordNumber},
			{"jasrac_code", p.JASRACCode},
			{"music_type", p.MusicType},
			{"choreographer1_name", p.Choreographer1Name},
			{"choreographer1_furigana", p.Choreographer1Furigana},
		}),
		missingFiles(files, preliminaryVideo),
	)
}

func finalStoryFields(p *models.ProgramInfo) []field {
	if !is(p.SongCount, models.TwoSongs) {
		return nil
	}
	return []field{{"final_story", p.FinalStory}}
}

// EvaluateProgram checks the printed program copy. Two-song entries also
// need the finals story.
func EvaluateProgram(p *models.ProgramInfo) Verdict {
	if p == nil {
		p = &models.ProgramInfo{}
	}
	return verdict(missing(
		[]field{
			{"song_count", p.SongCount},
			{"player_photo_path", p.PlayerPhotoPath},
			{"semifinal_story", p.SemifinalStory},
			{"semifinal_highlight", p.SemifinalHighlight},
			{"semifinal_image1_path", p.SemifinalImage1Path},
			{"semifinal_image2_path", p.SemifinalImage2Path},
			{"semifinal_image3_path", p.SemifinalImage3Path},
			{"semifinal_image4_path", p.SemifinalImage4Path},
		},
		finalStoryFields(p),
	))
}

// EvaluateSns only looks at the two SNS videos.
func EvaluateSns(_ *models.SnsInfo, files Attachments) Verdict {
	return verdict(missingFiles(files, snsPracticeVideo, snsIntroductionVideo))
}

// EvaluateApplications never reports complete: an applications record only
// ever reaches in_progress.
func EvaluateApplications(_ *models.ApplicationsInfo) Verdict {
	return Verdict{Complete: false, Missing: []string{}}
}
