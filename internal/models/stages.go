package models

import (
	"encoding/json"
	"fmt"
)

// Record is the typed view of a stage form.
type Record interface {
	Stage() Stage
}

// SceneCount is the number of numbered lighting scenes before the chaser/exit block.
const SceneCount = 5

type BasicInfo struct {
	DanceStyle string `json:"dance_style"`

	RepresentativeName      string `json:"representative_name"`
	RepresentativeFurigana  string `json:"representative_furigana"`
	RepresentativeRomanji   string `json:"representative_romanji"`
	RepresentativeBirthdate string `json:"representative_birthdate"` // YYYY-MM-DD
	RepresentativeEmail     string `json:"representative_email"`
	PhoneNumber             string `json:"phone_number"`
	RealName                string `json:"real_name"`
	RealNameKana            string `json:"real_name_kana"`

	PartnerName         string `json:"partner_name"`
	PartnerFurigana     string `json:"partner_furigana"`
	PartnerRomanji      string `json:"partner_romanji"`
	PartnerBirthdate    string `json:"partner_birthdate"`
	PartnerRealName     string `json:"partner_real_name"`
	PartnerRealNameKana string `json:"partner_real_name_kana"`

	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
	GuardianEmail string `json:"guardian_email"`

	PartnerGuardianName  string `json:"partner_guardian_name"`
	PartnerGuardianPhone string `json:"partner_guardian_phone"`
	PartnerGuardianEmail string `json:"partner_guardian_email"`

	AgreementChecked     bool `json:"agreement_checked"`
	MediaConsentChecked  bool `json:"media_consent_checked"`
	PrivacyPolicyChecked bool `json:"privacy_policy_checked"`
}

func (*BasicInfo) Stage() Stage { return StageBasic }

type PreliminaryInfo struct {
	WorkTitle              string `json:"work_title"`
	WorkTitleKana          string `json:"work_title_kana"`
	WorkStory              string `json:"work_story"`
	MusicRightsCleared     string `json:"music_rights_cleared"`
	MusicTitle             string `json:"music_title"`
	CDTitle                string `json:"cd_title"`
	Artist                 string `json:"artist"`
	RecordNumber           string `json:"record_number"`
	JASRACCode             string `json:"jasrac_code"`
	MusicType              string `json:"music_type"`
	Choreographer1Name     string `json:"choreographer1_name"`
	Choreographer1Furigana string `json:"choreographer1_furigana"`
}

func (*PreliminaryInfo) Stage() Stage { return StagePreliminary }

type ProgramInfo struct {
	SongCount           string `json:"song_count"` // "1曲" or "2曲"
	PlayerPhotoPath     string `json:"player_photo_path"`
	SemifinalStory      string `json:"semifinal_story"`
	SemifinalHighlight  string `json:"semifinal_highlight"`
	SemifinalImage1Path string `json:"semifinal_image1_path"`
	SemifinalImage2Path string `json:"semifinal_image2_path"`
	SemifinalImage3Path string `json:"semifinal_image3_path"`
	SemifinalImage4Path string `json:"semifinal_image4_path"`
	FinalStory          string `json:"final_story"`
	FinalHighlight      string `json:"final_highlight"`
	Notes               string `json:"notes"`
}

func (*ProgramInfo) Stage() Stage { return StageProgram }

// MusicInfo is the music and copyright block shared by semifinals and finals.
type MusicInfo struct {
	WorkTitle           string `json:"work_title"`
	WorkTitleKana       string `json:"work_title_kana"`
	WorkCharacter       string `json:"work_character"`
	CopyrightPermission string `json:"copyright_permission"`
	MusicTitle          string `json:"music_title"`
	Artist              string `json:"artist"`
	CDTitle             string `json:"cd_title"`
	RecordNumber        string `json:"record_number"`
	JASRACCode          string `json:"jasrac_code"`
	MusicType           string `json:"music_type"`
	MusicDataPath       string `json:"music_data_path"`
}

// SoundInfo is the sound cue block shared by semifinals and finals.
type SoundInfo struct {
	SoundStartTiming      string `json:"sound_start_timing"`
	ChaserSongDesignation string `json:"chaser_song_designation"`
	ChaserSong            string `json:"chaser_song"`
	FadeOutStartTime      string `json:"fade_out_start_time"`
	FadeOutCompleteTime   string `json:"fade_out_complete_time"`
}

// LightingScene is one lighting cue.
type LightingScene struct {
	Time       string `json:"time"`
	Trigger    string `json:"trigger"`
	ColorType  string `json:"color_type"`
	ColorOther string `json:"color_other"`
	Image      string `json:"image"`
	ImagePath  string `json:"image_path"`
	Notes      string `json:"notes"`
}

// LightingInfo is the lighting plan shared by semifinals and finals.
type LightingInfo struct {
	DanceStartTiming string                    `json:"dance_start_timing"`
	Scenes           [SceneCount]LightingScene `json:"scenes"`
	ChaserExit       LightingScene             `json:"chaser_exit"`
}

// ChoreographerInfo holds the primary and secondary choreographer.
type ChoreographerInfo struct {
	Choreographer1Name     string `json:"choreographer1_name"`
	Choreographer1Furigana string `json:"choreographer1_furigana"`
	Choreographer2Name     string `json:"choreographer2_name"`
	Choreographer2Furigana string `json:"choreographer2_furigana"`
}

// RefundAccount is the bank account used for prize money and refunds.
type RefundAccount struct {
	BankName      string `json:"bank_name"`
	BranchName    string `json:"branch_name"`
	AccountType   string `json:"account_type"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

const (
	PropsUsed = "あり"
	TwoSongs  = "2曲"
)

type SemifinalsInfo struct {
	Music         MusicInfo         `json:"music"`
	Sound         SoundInfo         `json:"sound"`
	Lighting      LightingInfo      `json:"lighting"`
	Choreographer ChoreographerInfo `json:"choreographer"`
	Account       RefundAccount     `json:"account"`

	PropsUsage   string `json:"props_usage"`
	PropsDetails string `json:"props_details"`
}

func (*SemifinalsInfo) Stage() Stage { return StageSemifinals }

type FinalsInfo struct {
	MusicChange         *bool `json:"music_change"`
	SoundChange         *bool `json:"sound_change_from_semifinals"`
	LightingChange      *bool `json:"lighting_change_from_semifinals"`
	ChoreographerChange *bool `json:"choreographer_change"`

	Music         MusicInfo         `json:"music"`
	Sound         SoundInfo         `json:"sound"`
	Lighting      LightingInfo      `json:"lighting"`
	Choreographer ChoreographerInfo `json:"choreographer"`

	PropsUsage                   string `json:"props_usage"`
	PropsDetails                 string `json:"props_details"`
	ChoreographerPhotoPermission string `json:"choreographer_photo_permission"`
	ChoreographerPhotoPath       string `json:"choreographer_photo_path"`
}

func (*FinalsInfo) Stage() Stage { return StageFinals }

type SnsInfo struct {
	PracticeVideoPath         string `json:"practice_video_path"`
	IntroductionHighlightPath string `json:"introduction_highlight_path"`
	Notes                     string `json:"notes"`
}

func (*SnsInfo) Stage() Stage { return StageSns }

type RelatedPerson struct {
	Name         string `json:"name"`
	Furigana     string `json:"furigana"`
	Relationship string `json:"relationship"`
}

type ApplicationsInfo struct {
	RelatedTicketCount int             `json:"related_ticket_count"`
	RelatedPeople      []RelatedPerson `json:"related_people"`
	CompanionName      string          `json:"companion_name"`
	CompanionPurpose   string          `json:"companion_purpose"`
	MakeupStyleFront   string          `json:"makeup_style_front"`
	Notes              string          `json:"notes"`
}

func (*ApplicationsInfo) Stage() Stage { return StageApplications }

// NewRecord returns an empty typed record for the stage.
func NewRecord(st Stage) (Record, error) {
	switch st {
	case StageBasic:
		return &BasicInfo{}, nil
	case StagePreliminary:
		return &PreliminaryInfo{}, nil
	case StageProgram:
		return &ProgramInfo{}, nil
	case StageSemifinals:
		return &SemifinalsInfo{}, nil
	case StageFinals:
		return &FinalsInfo{}, nil
	case StageSns:
		return &SnsInfo{}, nil
	case StageApplications:
		return &ApplicationsInfo{}, nil
	}
	return nil, fmt.Errorf("unknown stage: %q", st)
}

// DecodeRecord decodes stored fields into the typed record of the stage.
// Empty input decodes to the zero record.
func DecodeRecord(st Stage, fields []byte) (Record, error) {
	rec, err := NewRecord(st)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 || string(fields) == "null" {
		return rec, nil
	}
	if err := json.Unmarshal(fields, rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", st, err)
	}
	return rec, nil
}

// Decode is DecodeRecord over a stored record.
func (r *StageRecord) Decode() (Record, error) {
	return DecodeRecord(r.Stage, r.Fields)
}
