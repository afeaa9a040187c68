package pipeline

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"fitplan"
)

// days mirrors the canonical weekday order.
var days = fitplan.Days

// DropStats counts the items the reconciler silently discarded. The drops
// never influence control flow; they surface through logs and metrics, and
// indirectly through the strict validator when too much was lost.
type DropStats struct {
	DietItems     int
	ExerciseItems int
}

// payloadShape tags the structural variants a raw model result can take.
// Detection happens in a fixed priority order; every variant is handled
// explicitly.
type payloadShape int

const (
	shapeEnvelope payloadShape = iota // chat-completion envelope with choices
	shapeValue                        // any other JSON value
)

func classifyPayload(v any) payloadShape {
	m, ok := v.(map[string]any)
	if !ok {
		return shapeValue
	}
	if _, ok := m["choices"].([]any); ok {
		return shapeEnvelope
	}
	return shapeValue
}

// ExtractPayload decodes a raw result and, when it is a chat-completion
// envelope, digs out choices[0].message.content. String content is parsed as
// JSON; if that parse fails the string is returned unchanged so the strict
// validator downstream rejects it with a clear reason instead of the error
// being swallowed here.
func ExtractPayload(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		// Not JSON at all; hand the text to the validator.
		return string(raw)
	}

	switch classifyPayload(v) {
	case shapeEnvelope:
		m := v.(map[string]any)
		choices := m["choices"].([]any)
		if len(choices) == 0 {
			return v
		}
		first, ok := choices[0].(map[string]any)
		if !ok {
			return v
		}
		message, ok := first["message"].(map[string]any)
		if !ok {
			return v
		}
		content := message["content"]
		if s, ok := content.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				slog.Error("RECONCILE: Failed to parse model content as JSON",
					"error", err, "snippet", snippet(s, 2000))
				return s
			}
			return parsed
		}
		if content == nil {
			return v
		}
		return content
	case shapeValue:
		return v
	}
	return v
}

// dietShape tags the variants the diet section can arrive in.
type dietShape int

const (
	dietMissing  dietShape = iota
	dietFlatList           // a bare list of items, ignoring weekday structure
	dietDayMap             // the intended per-weekday mapping
)

func classifyDiet(v any) dietShape {
	switch v.(type) {
	case nil:
		return dietMissing
	case []any:
		return dietFlatList
	case map[string]any:
		return dietDayMap
	default:
		return dietMissing
	}
}

// NormalizePlan coerces a loosely-structured plan payload toward the
// canonical shape. It never fails; missing or unusable data yields empty
// structures that the strict validator then rejects with a precise reason.
func NormalizePlan(payload any) (any, DropStats) {
	var stats DropStats

	data := payload
	// Unwrap a "weeklyPlan"-style envelope.
	if m, ok := data.(map[string]any); ok {
		if inner, ok := m["weeklyPlan"]; ok {
			data = inner
		}
	}

	m, ok := data.(map[string]any)
	if !ok {
		return payload, stats
	}

	out := map[string]any{}

	switch classifyDiet(m["diet"]) {
	case dietFlatList:
		// Lossy fallback: replicate the first 3 normalized items across the
		// whole week, trading plan diversity for availability.
		out["diet"] = spreadDietAcrossWeek(m["diet"].([]any), &stats)
	case dietDayMap:
		out["diet"] = normalizeDietWeek(m["diet"].(map[string]any), &stats)
	case dietMissing:
		// Leave diet absent; validation reports the missing days.
	}

	if list, ok := m["exercise"].([]any); ok {
		out["exercise"] = normalizeExerciseList(list, &stats)
	}

	if stats.DietItems > 0 || stats.ExerciseItems > 0 {
		slog.Warn("RECONCILE: Dropped malformed items",
			"diet_items", stats.DietItems, "exercise_items", stats.ExerciseItems)
	}

	return out, stats
}

// spreadDietAcrossWeek assigns the first 3 normalized items of a flat list to
// every weekday key.
func spreadDietAcrossWeek(items []any, stats *DropStats) map[string]any {
	normalized := normalizeDietItems(items, stats)
	if len(normalized) > 3 {
		normalized = normalized[:3]
	}
	week := make(map[string]any, len(days))
	for _, day := range days {
		week[day] = normalized
	}
	return week
}

// normalizeDietWeek normalizes each present day independently, truncating to
// exactly 3 items.
func normalizeDietWeek(v map[string]any, stats *DropStats) map[string]any {
	week := map[string]any{}
	for _, day := range days {
		items, ok := v[day].([]any)
		if !ok {
			continue
		}
		normalized := normalizeDietItems(items, stats)
		if len(normalized) > 3 {
			normalized = normalized[:3]
		}
		week[day] = normalized
	}
	return week
}

func normalizeDietItems(items []any, stats *DropStats) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if n, ok := normalizeDietItem(item); ok {
			out = append(out, n)
		} else {
			stats.DietItems++
		}
	}
	return out
}

// normalizeDietItem resolves field-name variants and keeps the item only if
// when/what/why all resolve to non-empty strings.
func normalizeDietItem(item any) (map[string]any, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, false
	}
	when := stringField(m, "when")
	if when == "" {
		when = stringField(m, "meal") // accepted alias
	}
	what := stringField(m, "what")
	why := stringField(m, "why")
	if when == "" || what == "" || why == "" {
		return nil, false
	}
	return map[string]any{"when": when, "what": what, "why": why}, true
}

func normalizeExerciseList(items []any, stats *DropStats) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if n, ok := normalizeExerciseItem(item); ok {
			out = append(out, n)
		} else {
			stats.ExerciseItems++
		}
	}
	return out
}

// normalizeExerciseItem keeps a session only if every field resolves: the day
// through the weekday lookup, duration through numeric coercion, the rest as
// non-empty strings.
func normalizeExerciseItem(item any) (map[string]any, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, false
	}
	day := NormalizeDay(m["day"])
	when := stringField(m, "when")
	goal := stringField(m, "goal")
	what := stringField(m, "what")
	intensity := stringField(m, "intensity_or_rest")
	duration, durOK := numberField(m, "duration_minutes")
	if day == dayUndefined || when == "" || goal == "" || what == "" || intensity == "" || !durOK || duration <= 0 {
		return nil, false
	}
	return map[string]any{
		"day":               day,
		"when":              when,
		"goal":              goal,
		"what":              what,
		"duration_minutes":  duration,
		"intensity_or_rest": intensity,
	}, true
}

// dayUndefined is what an unrecognized day name normalizes to; items carrying
// it are dropped.
const dayUndefined = "undefined"

var dayAliases = map[string]string{
	"sat": "sat", "saturday": "sat",
	"sun": "sun", "sunday": "sun",
	"mon": "mon", "monday": "mon",
	"tue": "tue", "tuesday": "tue",
	"wed": "wed", "wednesday": "wed",
	"thu": "thu", "thursday": "thu",
	"fri": "fri", "friday": "fri",
}

// NormalizeDay maps a day value to its canonical key via a case-insensitive
// full-name-or-abbreviation lookup, or to "undefined".
func NormalizeDay(v any) string {
	s, ok := v.(string)
	if !ok {
		return dayUndefined
	}
	if key, ok := dayAliases[strings.ToLower(s)]; ok {
		return key
	}
	return dayUndefined
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func numberField(m map[string]any, key string) (float64, bool) {
	switch n := m[key].(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// DecodeGuidance strictly validates a reconciled value as Guidance.
func DecodeGuidance(v any) (*fitplan.Guidance, error) {
	var g fitplan.Guidance
	if err := remarshal(v, &g); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// DecodeWeeklyPlan strictly validates a reconciled value as a WeeklyPlan.
func DecodeWeeklyPlan(v any) (*fitplan.WeeklyPlan, error) {
	var p fitplan.WeeklyPlan
	if err := remarshal(v, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func remarshal(v any, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
