package rules

import (
	"strings"
	"time"

	"entry-portal/internal/models"
	"entry-portal/internal/util"
)

// UnknownAge is assumed when no birthdate was given. It never triggers the
// guardian requirement; a birthdate that is present but unreadable is
// reported missing instead.
const UnknownAge = 999

// AdultAge is the age from which no guardian is required.
const AdultAge = 18

var birthdateLayouts = []string{"2006-1-2", "2006/1/2", "2006.1.2", "2006年1月2日", "20060102"}

// Age returns completed years between birthdate and now. The year difference
// is reduced by one while the birthday has not yet occurred in now's year.
func Age(birthdate string, now time.Time) int {
	b, ok := parseBirthdate(birthdate)
	if !ok {
		return UnknownAge
	}
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	return age
}

// parseBirthdate reads the calendar date as written. A time of day after
// the date (RFC 3339 timestamps from browsers) is ignored.
func parseBirthdate(s string) (time.Time, bool) {
	s = util.NormalizeText(s)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.IndexAny(s, "T "); i > 0 {
		s = s[:i]
	}
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// birthdate keeps the value only when it parses, so an unreadable date
// counts as missing rather than as an unknown age.
func birthdate(s string) string {
	if _, ok := parseBirthdate(s); !ok {
		return ""
	}
	return s
}

func basicBaseFields(b *models.BasicInfo) []field {
	return []field{
		{"dance_style", b.DanceStyle},
		{"representative_name", b.RepresentativeName},
		{"representative_furigana", b.RepresentativeFurigana},
		{"representative_romanji", b.RepresentativeRomanji},
		{"representative_birthdate", birthdate(b.RepresentativeBirthdate)},
		{"representative_email", b.RepresentativeEmail},
		{"phone_number", b.PhoneNumber},
		{"real_name", b.RealName},
		{"real_name_kana", b.RealNameKana},
		{"partner_name", b.PartnerName},
		{"partner_furigana", b.PartnerFurigana},
		{"partner_romanji", b.PartnerRomanji},
		{"partner_birthdate", birthdate(b.PartnerBirthdate)},
		{"partner_real_name", b.PartnerRealName},
		{"partner_real_name_kana", b.PartnerRealNameKana},
	}
}

func guardianFields(b *models.BasicInfo, now time.Time) []field {
	if Age(b.RepresentativeBirthdate, now) >= AdultAge {
		return nil
	}
	return []field{
		{"guardian_name", b.GuardianName},
		{"guardian_phone", b.GuardianPhone},
		{"guardian_email", b.GuardianEmail},
	}
}

func partnerGuardianFields(b *models.BasicInfo, now time.Time) []field {
	if Age(b.PartnerBirthdate, now) >= AdultAge {
		return nil
	}
	return []field{
		{"partner_guardian_name", b.PartnerGuardianName},
		{"partner_guardian_phone", b.PartnerGuardianPhone},
		{"partner_guardian_email", b.PartnerGuardianEmail},
	}
}

func consentFields(b *models.BasicInfo) []field {
	return []field{
		flag("agreement_checked", b.AgreementChecked),
		flag("media_consent_checked", b.MediaConsentChecked),
		flag("privacy_policy_checked", b.PrivacyPolicyChecked),
	}
}

// EvaluateBasic checks the participant and partner profile.
func EvaluateBasic(b *models.BasicInfo, now time.Time) Verdict {
	if b == nil {
		b = &models.BasicInfo{}
	}
	return verdict(missing(
		basicBaseFields(b),
		guardianFields(b, now),
		partnerGuardianFields(b, now),
		consentFields(b),
	))
}
