package pipeline

import (
	"encoding/json"
	"fmt"

	"fitplan"
	"fitplan/inference"
)

// languageNames gives the prompt templates a human name for the user-facing
// text language.
var languageNames = map[fitplan.Language]string{
	"fa": "Persian (Farsi)",
	"en": "English",
	"ar": "Arabic",
	"tr": "Turkish",
	"zh": "Chinese",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
}

func languageName(lang fitplan.Language) string {
	if name, ok := languageNames[lang]; ok {
		return name
	}
	return languageNames[fitplan.DefaultLanguage]
}

const guidancePromptFmt = `You are a concise nutrition and training coach.
Return only the critical constraints the plan must follow.
Respond strictly as JSON matching the guidance schema. No prose outside JSON.
- The JSON must be syntactically complete: close every string, array, and object; no trailing commas; no ellipses.
- Keep guidance simple and practical: everyday foods, no supplements or complex recipes.
- diet_rules: 3-5 short %[1]s bullets with calorie/macro boundaries implied by the provided computedNumbers.
- exercise_rules: 3-5 short %[1]s bullets noting split, intensity guidance, and recovery.
Each bullet <= 80 chars. Use the provided user payload; never re-compute numbers.`

const planPromptFmt = `You are writing the weekly plan that satisfies given rules.
Respond strictly as JSON per the plan schema. No extra text.
Use English for JSON keys; %[1]s for user-facing text ("goal", "what", "why").
Use the provided computedNumbers; do not recompute calories/macros.
Keep the plan basic and clear: simple meals (one protein + one carb + veg), common units (g, cup), no recipes, no brand names, no supplements. Reuse items across days if helpful. Exactly 3 meals per day.
Constraints:
- Diet object must contain keys sat,sun,mon,tue,wed,thu,fri. Each is an array of exactly 3 items with keys when, what, why.
- Exercise is an array (3-4) of sessions; day must be one of sat|sun|mon|tue|wed|thu|fri; include when, goal, what, duration_minutes, intensity_or_rest. Prefer bodyweight/dumbbell if practicePlace != "gym".
- Keep each "what" <= 120 chars and "why" <= 80 chars.`

// GuidancePrompt returns the stage-one system prompt for a language.
func GuidancePrompt(lang fitplan.Language) string {
	return fmt.Sprintf(guidancePromptFmt, languageName(lang))
}

// PlanPrompt returns the stage-two system prompt for a language.
func PlanPrompt(lang fitplan.Language) string {
	return fmt.Sprintf(planPromptFmt, languageName(lang))
}

func guidanceMessages(payload fitplan.UserPayload, lang fitplan.Language) ([]inference.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []inference.Message{
		{Role: "system", Content: GuidancePrompt(lang)},
		{Role: "user", Content: string(body)},
	}, nil
}

// PlanPayload is the stage-two prompt context: the user payload plus the
// validated guidance it must condition on.
type PlanPayload struct {
	fitplan.UserPayload
	Guidance fitplan.Guidance `json:"guidance"`
}

func planMessages(payload PlanPayload, lang fitplan.Language) ([]inference.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []inference.Message{
		{Role: "system", Content: PlanPrompt(lang)},
		{Role: "user", Content: string(body)},
	}, nil
}

// medicalGateMessages are the localized consult-a-professional refusals for
// the hard safety gate.
var medicalGateMessages = map[fitplan.Language]string{
	"fa": "به دلیل وجود شرایط پزشکی، لطفاً پیش از دریافت برنامه با پزشک یا متخصص تغذیه مشورت کنید.",
	"en": "Because a medical condition was reported, please consult a physician or registered dietitian before receiving a plan.",
	"ar": "نظرًا لوجود حالة طبية، يُرجى استشارة طبيب أو أخصائي تغذية قبل الحصول على خطة.",
	"tr": "Bir sağlık durumu bildirildiği için plan almadan önce lütfen bir doktora veya diyetisyene danışın.",
	"zh": "由于您报告了健康状况，请在获取计划前咨询医生或注册营养师。",
	"es": "Dado que se indicó una condición médica, consulte a un médico o nutricionista antes de recibir un plan.",
	"fr": "Une condition médicale ayant été signalée, veuillez consulter un médecin ou un diététicien avant de recevoir un programme.",
	"de": "Da eine medizinische Vorerkrankung angegeben wurde, konsultieren Sie bitte vor Erhalt eines Plans einen Arzt oder Ernährungsberater.",
}

// MedicalGateMessage returns the localized refusal for the medical gate.
func MedicalGateMessage(lang fitplan.Language) string {
	if msg, ok := medicalGateMessages[lang]; ok {
		return msg
	}
	return medicalGateMessages[fitplan.DefaultLanguage]
}
