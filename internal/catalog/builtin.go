package catalog

import "github.com/BTreeMap/ReflectPipe/internal/models"

var moodScale = &models.ScaleRange{Min: 0, Max: 10, MinLabel: "Very low", MaxLabel: "Excellent"}

var sleepOptions = []models.Option{
	{Value: "1", Label: "Terrible"},
	{Value: "2", Label: "Poor"},
	{Value: "3", Label: "Okay"},
	{Value: "4", Label: "Good"},
	{Value: "5", Label: "Great"},
}

// Builtin returns the default morning, midday and evening scenarios.
func Builtin() []models.Scenario {
	return []models.Scenario{
		{
			ID:             "morning-check-in",
			Type:           models.SessionTypeMorning,
			Title:          "Morning check-in",
			Greeting:       "Good morning. Let's take a minute to see how you're starting the day.",
			ClosingMessage: "Thanks for checking in. Carry one small intention with you today.",
			Questions: []models.Question{
				{ID: "sleep_quality", Prompt: "How did you sleep?", Kind: models.KindLabeledScale,
					Scale: &models.ScaleRange{Min: 1, Max: 5}, Options: sleepOptions, Required: true,
					FollowUps: []models.FollowUpRule{
						{When: models.Predicate{Op: models.OpLTE, Value: models.Number(2)}, Next: "sleep_disruption"},
					}},
				{ID: "energy", Prompt: "How much energy do you have right now?", Kind: models.KindNumericScale,
					Scale: moodScale, Required: true},
				{ID: "mood", Prompt: "How is your mood this morning?", Kind: models.KindNumericScale,
					Scale: moodScale, Required: true},
				{ID: "intention", Prompt: "What is one intention for today?", Kind: models.KindFreeText},
			},
			FollowUps: []models.Question{
				{ID: "sleep_disruption", VariantOf: "sleep_quality", Prompt: "What got in the way of your sleep?",
					Kind: models.KindMultiChoice, Options: []models.Option{
						{Value: "stress", Label: "Stress or worry"},
						{Value: "noise", Label: "Noise or environment"},
						{Value: "screens", Label: "Late screen time"},
						{Value: "body", Label: "Physical discomfort"},
						{Value: "other", Label: "Something else"},
					}},
			},
		},
		{
			ID:             "midday-pause",
			Type:           models.SessionTypeMidday,
			Title:          "Midday pause",
			Greeting:       "Time for a short pause in the middle of your day.",
			ClosingMessage: "Good job taking a pause. A few slow breaths before you continue can help.",
			Questions: []models.Question{
				{ID: "stress", Prompt: "How stressed do you feel right now?", Kind: models.KindNumericScale,
					Scale: &models.ScaleRange{Min: 0, Max: 10, MinLabel: "Calm", MaxLabel: "Overwhelmed"}, Required: true,
					FollowUps: []models.FollowUpRule{
						{When: models.Predicate{Op: models.OpGTE, Value: models.Number(7)}, Next: "stress_source"},
					}},
				{ID: "anxiety", Prompt: "How anxious do you feel?", Kind: models.KindNumericScale,
					Scale: &models.ScaleRange{Min: 0, Max: 10, MinLabel: "Not at all", MaxLabel: "Extremely"}, Required: true},
				{ID: "break_taken", Prompt: "Have you taken a break yet today?", Kind: models.KindSingleChoice,
					Options: []models.Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "Not yet"}}},
			},
			FollowUps: []models.Question{
				{ID: "stress_source", VariantOf: "stress", Prompt: "What is weighing on you most?",
					Kind: models.KindSingleChoice, Options: []models.Option{
						{Value: "work", Label: "Work or study"},
						{Value: "people", Label: "People around me"},
						{Value: "health", Label: "Health"},
						{Value: "money", Label: "Money"},
						{Value: "other", Label: "Something else"},
					}},
			},
		},
		{
			ID:             "evening-reflection",
			Type:           models.SessionTypeEvening,
			Title:          "Evening reflection",
			Greeting:       "Welcome back. Let's look back on your day together.",
			ClosingMessage: "Thank you for reflecting on your day. Rest well.",
			Questions: []models.Question{
				{ID: "mood", Prompt: "How was your mood overall today?", Kind: models.KindNumericScale,
					Scale: moodScale, Required: true},
				{ID: "day_direction", Prompt: "Compared with yesterday, today felt...", Kind: models.KindSingleChoice,
					Options: []models.Option{
						{Value: "better", Label: "Better"},
						{Value: "same", Label: "About the same"},
						{Value: "worse", Label: "Worse"},
					},
					FollowUps: []models.FollowUpRule{
						{When: models.Predicate{Op: models.OpEquals, Value: models.Text("better")}, Next: "day_better"},
						{When: models.Predicate{Op: models.OpEquals, Value: models.Text("worse")}, Next: "day_worse"},
					}},
				{ID: "feelings", Prompt: "Which feelings showed up today?", Kind: models.KindMultiChoice,
					Options: []models.Option{
						{Value: "calm", Label: "Calm"},
						{Value: "grateful", Label: "Grateful"},
						{Value: "anxious", Label: "Anxious"},
						{Value: "tired", Label: "Tired"},
						{Value: "frustrated", Label: "Frustrated"},
						{Value: "lonely", Label: "Lonely"},
					}},
				{ID: "anxiety", Prompt: "How anxious did you feel today?", Kind: models.KindNumericScale,
					Scale: &models.ScaleRange{Min: 0, Max: 10, MinLabel: "Not at all", MaxLabel: "Extremely"}},
				{ID: "gratitude", Prompt: "Name one thing you are grateful for today.", Kind: models.KindFreeText},
			},
			FollowUps: []models.Question{
				{ID: "day_better", VariantOf: "day_direction", Prompt: "What made today better?", Kind: models.KindFreeText},
				{ID: "day_worse", VariantOf: "day_direction", Prompt: "What made today harder?", Kind: models.KindFreeText},
			},
		},
	}
}

// Default returns a catalog of the built-in scenarios.
func Default(opts ...Option) (*Catalog, error) {
	return New(Builtin(), opts...)
}
