package classify

// Category names referenced elsewhere in the code.
const (
	BusinessHours = "business_hours"
	QuickErrand   = "quick_errand"
	FocusProject  = "focus_project"
	SocialTrips   = "social_trips"
	Shopping      = "shopping"
	General       = "general"
)

// defaultRules is the built-in priority-ordered rule table. Windows are
// local hours: business calls only during office hours, focus work in
// the evening, errands and shopping any waking hour.
var defaultRules = []Rule{
	{
		Name:   BusinessHours,
		Window: Window{Start: 9, End: 17},
		Keywords: []string{
			"call", "schedule", "doctor", "dentist", "appointment",
			"podiatrist", "dermatologist", "therapist", "vet", "clinic",
			"office", "bank", "dmv", "government", "insurance",
		},
		Sections: []string{"health", "medical", "appointments", "admin"},
	},
	{
		Name:   QuickErrand,
		Window: Window{Start: 7, End: 23},
		Keywords: []string{
			"submit", "order", "check", "sign up", "cancel", "renew",
			"update", "confirm", "reply", "respond", "email", "text",
			"fill out", "complete form",
		},
	},
	{
		Name:   FocusProject,
		Window: Window{Start: 18, End: 23},
		Keywords: []string{
			"set up", "try", "research", "build", "create", "write",
			"design", "develop", "learn", "study", "read about",
			"remix", "record", "edit", "practice",
		},
		Sections: []string{"ai assistant", "projects", "creative", "learning", "research", "music"},
	},
	{
		Name:   SocialTrips,
		Window: Window{Start: 9, End: 22},
		Keywords: []string{
			"trip", "tickets", "travel", "vacation", "visit",
			"meet", "dinner", "lunch", "party", "event",
		},
	},
	{
		Name:   Shopping,
		Window: Window{Start: 7, End: 23},
		Keywords: []string{
			"buy", "purchase", "find", "shop", "pick up",
			"amazon", "costco", "groceries",
		},
		Sections: []string{"shopping", "food", "groceries"},
	},
}

var defaultFallback = Rule{
	Name:   General,
	Window: Window{Start: 8, End: 22},
}

// Default returns a Classifier with the built-in rule table.
func Default() *Classifier {
	return New(defaultRules, defaultFallback)
}
