// Package calendar turns bookings and working hours into render-ready day,
// week and month layouts. Everything here is pure: no I/O, no shared state.
package calendar

// Settings holds the fallback constants used by the resolver and placement.
// The zero value is not useful; start from DefaultSettings.
type Settings struct {
	DefaultStartHour int
	DefaultEndHour   int
	// MinHeight is the smallest rendered height, in minute units.
	MinHeight int
	// MaxVisible caps the bookings listed per month cell; 0 lists all.
	MaxVisible int

	ClientLabel       string
	ServiceLabel      string
	ProfessionalLabel string

	UnassignedKey   string
	UnassignedLabel string
	NoServiceKey    string
	NoServiceLabel  string
}

func DefaultSettings() Settings {
	return Settings{
		DefaultStartHour:  9,
		DefaultEndHour:    18,
		MinHeight:         20,
		MaxVisible:        3,
		ClientLabel:       "Client",
		ServiceLabel:      "Service",
		ProfessionalLabel: "Unassigned",
		UnassignedKey:     "unassigned",
		UnassignedLabel:   "Unassigned",
		NoServiceKey:      "no-service",
		NoServiceLabel:    "No Service",
	}
}

// withDefaults fills blank fields so partially specified settings from config
// files still behave.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.DefaultStartHour < 0 || s.DefaultStartHour > 23 {
		s.DefaultStartHour = d.DefaultStartHour
	}
	if s.DefaultEndHour <= 0 || s.DefaultEndHour > 23 {
		s.DefaultEndHour = d.DefaultEndHour
	}
	if s.MinHeight <= 0 {
		s.MinHeight = d.MinHeight
	}
	if s.MaxVisible < 0 {
		s.MaxVisible = 0
	}
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.ClientLabel, d.ClientLabel)
	fill(&s.ServiceLabel, d.ServiceLabel)
	fill(&s.ProfessionalLabel, d.ProfessionalLabel)
	fill(&s.UnassignedKey, d.UnassignedKey)
	fill(&s.UnassignedLabel, d.UnassignedLabel)
	fill(&s.NoServiceKey, d.NoServiceKey)
	fill(&s.NoServiceLabel, d.NoServiceLabel)
	return s
}
