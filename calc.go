package fitplan

import "math"

// activityFactors maps activity level to its TDEE multiplier. Single source
// of truth, shared with nothing mutable.
var activityFactors = map[Activity]float64{
	ActivityLow:    1.2,
	ActivityMedium: 1.55,
	ActivityHigh:   1.725,
}

// goalFactors maps goal to the daily-calorie adjustment applied to TDEE.
var goalFactors = map[Goal]float64{
	GoalLoseWeight:     0.85,
	GoalBuildMuscle:    1.10,
	GoalGetFit:         0.95,
	GoalMaintainWeight: 1.00,
}

// macroSplits is a fixed lookup per goal; every triple sums to 100. Macros
// are not derived from calories.
var macroSplits = map[Goal]MacroSplit{
	GoalBuildMuscle:    {Protein: 30, Fat: 25, Carbs: 45},
	GoalLoseWeight:     {Protein: 35, Fat: 30, Carbs: 35},
	GoalGetFit:         {Protein: 30, Fat: 30, Carbs: 40},
	GoalMaintainWeight: {Protein: 25, Fat: 30, Carbs: 45},
}

// ComputeNumbers derives the deterministic targets for a profile. Pure and
// bit-reproducible: the same profile always yields the same numbers, and the
// remote model is instructed never to recompute them.
//
// BMR uses Mifflin-St Jeor; TDEE and daily calories are computed from the
// already-rounded previous value so results stay stable across platforms.
func ComputeNumbers(p Profile) ComputedNumbers {
	heightM := p.HeightCm / 100
	bmi := math.Round(p.WeightKg/(heightM*heightM)*10) / 10

	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Sex == SexMale {
		base += 5
	} else {
		base -= 161
	}
	bmr := int(math.Round(base))

	tdee := int(math.Round(float64(bmr) * activityFactors[p.Activity]))
	daily := int(math.Round(float64(tdee) * goalFactors[p.Goal]))

	return ComputedNumbers{
		BMI:           bmi,
		BMR:           bmr,
		TDEE:          tdee,
		DailyCalories: daily,
		Macros:        macroSplits[p.Goal],
	}
}
