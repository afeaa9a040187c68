package fitplan

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// HTTPClient is the minimal HTTP surface the inference backends need.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sex, Goal, Activity, PracticePlace and Language are the closed enums a
// Profile is built from. Unknown values never survive ParseProfile.
type (
	Sex           string
	Goal          string
	Activity      string
	PracticePlace string
	Language      string
)

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"

	GoalBuildMuscle    Goal = "build_muscle"
	GoalLoseWeight     Goal = "lose_weight"
	GoalGetFit         Goal = "get_fit"
	GoalMaintainWeight Goal = "maintain_weight"

	ActivityLow    Activity = "low"
	ActivityMedium Activity = "medium"
	ActivityHigh   Activity = "high"

	PlaceHome PracticePlace = "home"
	PlaceGym  PracticePlace = "gym"
	PlaceBoth PracticePlace = "both"
)

// DefaultLanguage is applied when the request carries no language tag.
const DefaultLanguage Language = "fa"

// Languages lists every supported language tag.
var Languages = []Language{"fa", "en", "ar", "tr", "zh", "es", "fr", "de"}

// Days are the seven weekday keys of a plan, in their fixed order.
var Days = []string{"sat", "sun", "mon", "tue", "wed", "thu", "fri"}

// Profile is the validated user input. Immutable once constructed; it lives
// for exactly one request.
type Profile struct {
	HeightCm         float64       `json:"heightCm"`
	WeightKg         float64       `json:"weightKg"`
	Age              int           `json:"age"`
	Sex              Sex           `json:"sex"`
	Goal             Goal          `json:"goal"`
	Activity         Activity      `json:"activity"`
	MedicalCondition string        `json:"medicalCondition,omitempty"`
	PracticePlace    PracticePlace `json:"practicePlace,omitempty"`
	Language         Language      `json:"language,omitempty"`
}

// MacroSplit is a percentage triple that always sums to 100.
type MacroSplit struct {
	Protein int `json:"protein"`
	Fat     int `json:"fat"`
	Carbs   int `json:"carbs"`
}

// ComputedNumbers are the deterministic targets derived from a Profile.
// The remote model is instructed to use them verbatim, never to recompute.
type ComputedNumbers struct {
	BMI           float64    `json:"bmi"`
	BMR           int        `json:"bmr"`
	TDEE          int        `json:"tDee"`
	DailyCalories int        `json:"dailyCalories"`
	Macros        MacroSplit `json:"macro_distribution_percent"`
}

// UserPayload is the prompt context for both inference stages.
type UserPayload struct {
	Goal            Goal            `json:"goal"`
	Activity        Activity        `json:"activity"`
	Sex             Sex             `json:"sex"`
	Age             int             `json:"age"`
	PracticePlace   PracticePlace   `json:"practicePlace,omitempty"`
	ComputedNumbers ComputedNumbers `json:"computedNumbers"`
}

// NewUserPayload builds the stage payload from a profile and its numbers.
func NewUserPayload(p Profile, n ComputedNumbers) UserPayload {
	return UserPayload{
		Goal:            p.Goal,
		Activity:        p.Activity,
		Sex:             p.Sex,
		Age:             p.Age,
		PracticePlace:   p.PracticePlace,
		ComputedNumbers: n,
	}
}

// Guidance holds the short constraint bullets produced by the first stage.
type Guidance struct {
	DietRules     []string `json:"diet_rules"`
	ExerciseRules []string `json:"exercise_rules"`
}

// Validate checks the guidance against its schema: 2-6 non-blank rules per
// list. Returns the first violation.
func (g *Guidance) Validate() error {
	if err := validateRules("diet_rules", g.DietRules); err != nil {
		return err
	}
	return validateRules("exercise_rules", g.ExerciseRules)
}

func validateRules(field string, rules []string) error {
	if len(rules) < 2 || len(rules) > 6 {
		return fmt.Errorf("%s must contain between 2 and 6 entries, got %d", field, len(rules))
	}
	for i, r := range rules {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("%s[%d] must be a non-empty string", field, i)
		}
	}
	return nil
}

const (
	maxWhatLen = 120
	maxWhyLen  = 80
)

// DietItem is a single meal entry of a diet day.
type DietItem struct {
	When string `json:"when"`
	What string `json:"what"`
	Why  string `json:"why"`
}

func (d DietItem) validate(path string) error {
	if strings.TrimSpace(d.When) == "" {
		return fmt.Errorf("%s.when must be a non-empty string", path)
	}
	if strings.TrimSpace(d.What) == "" {
		return fmt.Errorf("%s.what must be a non-empty string", path)
	}
	if strings.TrimSpace(d.Why) == "" {
		return fmt.Errorf("%s.why must be a non-empty string", path)
	}
	if utf8.RuneCountInString(d.What) > maxWhatLen {
		return fmt.Errorf("%s.what must be at most %d characters", path, maxWhatLen)
	}
	if utf8.RuneCountInString(d.Why) > maxWhyLen {
		return fmt.Errorf("%s.why must be at most %d characters", path, maxWhyLen)
	}
	return nil
}

// ExerciseSession is a single session of the weekly exercise list.
type ExerciseSession struct {
	Day             string  `json:"day"`
	When            string  `json:"when"`
	Goal            string  `json:"goal"`
	What            string  `json:"what"`
	DurationMinutes float64 `json:"duration_minutes"`
	IntensityOrRest string  `json:"intensity_or_rest"`
}

func (e ExerciseSession) validate(path string) error {
	if !IsDayKey(e.Day) {
		return fmt.Errorf("%s.day must be one of sat|sun|mon|tue|wed|thu|fri, got %q", path, e.Day)
	}
	for _, f := range []struct{ name, val string }{
		{"when", e.When},
		{"goal", e.Goal},
		{"what", e.What},
		{"intensity_or_rest", e.IntensityOrRest},
	} {
		if strings.TrimSpace(f.val) == "" {
			return fmt.Errorf("%s.%s must be a non-empty string", path, f.name)
		}
	}
	if e.DurationMinutes <= 0 {
		return fmt.Errorf("%s.duration_minutes must be a positive number", path)
	}
	return nil
}

// IsDayKey reports whether s is one of the seven canonical weekday keys.
func IsDayKey(s string) bool {
	for _, d := range Days {
		if s == d {
			return true
		}
	}
	return false
}

// DietWeek maps each of the seven weekday keys to exactly 3 diet items.
type DietWeek struct {
	Sat []DietItem `json:"sat"`
	Sun []DietItem `json:"sun"`
	Mon []DietItem `json:"mon"`
	Tue []DietItem `json:"tue"`
	Wed []DietItem `json:"wed"`
	Thu []DietItem `json:"thu"`
	Fri []DietItem `json:"fri"`
}

// Day returns the item list for a canonical weekday key.
func (w *DietWeek) Day(key string) []DietItem {
	switch key {
	case "sat":
		return w.Sat
	case "sun":
		return w.Sun
	case "mon":
		return w.Mon
	case "tue":
		return w.Tue
	case "wed":
		return w.Wed
	case "thu":
		return w.Thu
	case "fri":
		return w.Fri
	}
	return nil
}

// WeeklyPlan is the final deliverable: a seven-day diet map plus 1-7
// exercise sessions. Only ever constructed after reconciliation and
// validation both pass.
type WeeklyPlan struct {
	Diet     DietWeek          `json:"diet"`
	Exercise []ExerciseSession `json:"exercise"`
}

// Validate strictly checks the plan shape and returns the first violation.
// Diet days carry exactly 3 items: the prompt instructs exactly 3 and the
// reconciler truncates to 3, so anything else means data was dropped.
func (p *WeeklyPlan) Validate() error {
	for _, day := range Days {
		items := p.Diet.Day(day)
		if len(items) != 3 {
			return fmt.Errorf("diet.%s must contain exactly 3 items, got %d", day, len(items))
		}
		for i, item := range items {
			if err := item.validate(fmt.Sprintf("diet.%s[%d]", day, i)); err != nil {
				return err
			}
		}
	}
	if len(p.Exercise) < 1 || len(p.Exercise) > 7 {
		return fmt.Errorf("exercise must contain between 1 and 7 sessions, got %d", len(p.Exercise))
	}
	for i, s := range p.Exercise {
		if err := s.validate(fmt.Sprintf("exercise[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// Status discriminates the three Outcome shapes.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Outcome is the externally visible result. Exactly one of Plans or Reason
// is populated, according to Status.
type Outcome struct {
	Status   Status      `json:"status"`
	Plans    *WeeklyPlan `json:"plans,omitempty"`
	Guidance *Guidance   `json:"guidance,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

// Validate enforces the success/rejected/error invariants. It is the last
// safety net before an Outcome leaves the process.
func (o *Outcome) Validate() error {
	switch o.Status {
	case StatusSuccess:
		if o.Plans == nil {
			return fmt.Errorf("success outcome must carry plans")
		}
		if o.Reason != "" {
			return fmt.Errorf("success outcome must not carry a reason")
		}
		if err := o.Plans.Validate(); err != nil {
			return err
		}
		if o.Guidance != nil {
			if err := o.Guidance.Validate(); err != nil {
				return err
			}
		}
	case StatusRejected, StatusError:
		if strings.TrimSpace(o.Reason) == "" {
			return fmt.Errorf("%s outcome must carry a reason", o.Status)
		}
		if o.Plans != nil {
			return fmt.Errorf("%s outcome must not carry plans", o.Status)
		}
	default:
		return fmt.Errorf("unknown outcome status %q", o.Status)
	}
	return nil
}

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID returns a context carrying the request id. The id is threaded
// explicitly rather than captured in logger closures so tests and concurrent
// requests stay independent.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the request id on ctx, or "" when absent.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
