package fitplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeNumbers(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    ComputedNumbers
	}{
		{
			name: "build muscle, medium activity",
			profile: Profile{
				HeightCm: 180, WeightKg: 78, Age: 32,
				Sex: SexMale, Goal: GoalBuildMuscle, Activity: ActivityMedium,
			},
			want: ComputedNumbers{
				BMI:           24.1,
				BMR:           1750, // 780 + 1125 - 160 + 5
				TDEE:          2713, // round(1750 * 1.55)
				DailyCalories: 2984, // round(2713 * 1.10)
				Macros:        MacroSplit{Protein: 30, Fat: 25, Carbs: 45},
			},
		},
		{
			name: "lose weight, female, low activity",
			profile: Profile{
				HeightCm: 165, WeightKg: 70, Age: 40,
				Sex: SexFemale, Goal: GoalLoseWeight, Activity: ActivityLow,
			},
			want: ComputedNumbers{
				BMI:           25.7,
				BMR:           1370, // 700 + 1031.25 - 200 - 161 = 1370.25
				TDEE:          1644,
				DailyCalories: 1397,
				Macros:        MacroSplit{Protein: 35, Fat: 30, Carbs: 35},
			},
		},
		{
			name: "maintain weight, high activity",
			profile: Profile{
				HeightCm: 175, WeightKg: 80, Age: 25,
				Sex: SexMale, Goal: GoalMaintainWeight, Activity: ActivityHigh,
			},
			want: ComputedNumbers{
				BMI:           26.1,
				BMR:           1774, // 800 + 1093.75 - 125 + 5 = 1773.75
				TDEE:          3060, // round(1774 * 1.725) = round(3060.15)
				DailyCalories: 3060,
				Macros:        MacroSplit{Protein: 25, Fat: 30, Carbs: 45},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeNumbers(tt.profile)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeNumbers_Pure(t *testing.T) {
	p := Profile{
		HeightCm: 172.5, WeightKg: 66.3, Age: 29,
		Sex: SexFemale, Goal: GoalGetFit, Activity: ActivityMedium,
	}
	first := ComputeNumbers(p)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, ComputeNumbers(p))
	}
}

func TestMacroSplitsSumTo100(t *testing.T) {
	for goal, split := range macroSplits {
		assert.Equal(t, 100, split.Protein+split.Fat+split.Carbs, "goal %s", goal)
	}
}
