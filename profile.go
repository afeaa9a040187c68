package fitplan

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError reports the first offending field of an invalid request
// body, with a human-readable bound violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ParseProfile coerces an untyped JSON object into a Profile, or fails with
// a *ValidationError naming the first bad field. Numeric fields accept
// numeric-looking strings; age must additionally be an integer. Fields are
// checked in a fixed order so the reported issue is deterministic.
func ParseProfile(raw map[string]any) (Profile, error) {
	var p Profile

	height, ok := coerceNumber(raw["heightCm"])
	if !ok || height < 120 || height > 230 {
		return p, invalid("heightCm", "must be between 120 and 230")
	}
	weight, ok := coerceNumber(raw["weightKg"])
	if !ok || weight < 30 || weight > 250 {
		return p, invalid("weightKg", "must be between 30 and 250")
	}
	age, ok := coerceInt(raw["age"])
	if !ok || age < 12 || age > 80 {
		return p, invalid("age", "must be an integer between 12 and 80")
	}

	sex, ok := coerceEnum(raw["sex"], []string{string(SexMale), string(SexFemale)})
	if !ok {
		return p, invalid("sex", "must be one of male|female")
	}
	goal, ok := coerceEnum(raw["goal"], []string{
		string(GoalBuildMuscle), string(GoalLoseWeight), string(GoalGetFit), string(GoalMaintainWeight),
	})
	if !ok {
		return p, invalid("goal", "must be one of build_muscle|lose_weight|get_fit|maintain_weight")
	}
	activity, ok := coerceEnum(raw["activity"], []string{
		string(ActivityLow), string(ActivityMedium), string(ActivityHigh),
	})
	if !ok {
		return p, invalid("activity", "must be one of low|medium|high")
	}

	medical := ""
	if v, present := raw["medicalCondition"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return p, invalid("medicalCondition", "must be a string")
		}
		medical = strings.TrimSpace(s)
	}

	var place PracticePlace
	if v, present := raw["practicePlace"]; present && v != nil {
		s, ok := coerceEnum(v, []string{string(PlaceHome), string(PlaceGym), string(PlaceBoth)})
		if !ok {
			return p, invalid("practicePlace", "must be one of home|gym|both")
		}
		place = PracticePlace(s)
	}

	lang := DefaultLanguage
	if v, present := raw["language"]; present && v != nil {
		s, ok := v.(string)
		if !ok || !isLanguage(s) {
			return p, invalid("language", "must be one of fa|en|ar|tr|zh|es|fr|de")
		}
		lang = Language(s)
	}

	p = Profile{
		HeightCm:         height,
		WeightKg:         weight,
		Age:              age,
		Sex:              Sex(sex),
		Goal:             Goal(goal),
		Activity:         Activity(activity),
		MedicalCondition: medical,
		PracticePlace:    place,
		Language:         lang,
	}
	return p, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText lowercases s and strips all whitespace. Used only to decide
// whether free text is present; content is never inspected further.
func NormalizeText(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(s), "")
}

// HasMedicalCondition reports whether the profile carries any non-blank
// medical-condition text. Presence alone triggers the orchestrator's safety
// gate.
func (p Profile) HasMedicalCondition() bool {
	return len(NormalizeText(p.MedicalCondition)) > 0
}

func coerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func coerceInt(v any) (int, bool) {
	f, ok := coerceNumber(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func coerceEnum(v any, allowed []string) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	for _, a := range allowed {
		if s == a {
			return s, true
		}
	}
	return "", false
}

func isLanguage(s string) bool {
	for _, l := range Languages {
		if Language(s) == l {
			return true
		}
	}
	return false
}
