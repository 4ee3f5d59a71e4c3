package contract

import (
	"encoding/json"
	"strings"
	"time"
)

var dayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func DayName(wd time.Weekday) string {
	if wd < time.Sunday || wd > time.Saturday {
		return ""
	}
	return dayNames[wd]
}

func WeekdayByName(name string) (time.Weekday, bool) {
	s := strings.ToLower(strings.TrimSpace(name))
	for i, n := range dayNames {
		if s == n || (len(s) == 3 && strings.HasPrefix(n, s)) {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}

type DayHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

// Usable reports whether the entry is enabled with both bounds present and
// start sorting before end as HH:MM text.
func (d DayHours) Usable() bool {
	start := strings.TrimSpace(d.Start)
	end := strings.TrimSpace(d.End)
	return d.Enabled && start != "" && end != "" && start < end
}

// WorkingHours is either a flat start/end range or a weekly map of DayHours.
// A JSON object carrying a "monday" key is read as the weekly shape.
type WorkingHours struct {
	Weekly bool
	Start  string
	End    string
	Days   map[time.Weekday]DayHours
}

func FlatHours(start, end string) *WorkingHours {
	return &WorkingHours{Start: start, End: end}
}

func WeeklyHours(days map[time.Weekday]DayHours) *WorkingHours {
	out := &WorkingHours{Weekly: true, Days: make(map[time.Weekday]DayHours, 7)}
	for wd, d := range days {
		out.Days[wd] = d
	}
	return out
}

func (w *WorkingHours) Day(wd time.Weekday) DayHours {
	if w == nil || w.Days == nil {
		return DayHours{}
	}
	return w.Days[wd]
}

func (w *WorkingHours) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = WorkingHours{}
	if _, ok := raw["monday"]; ok {
		w.Weekly = true
		w.Days = make(map[time.Weekday]DayHours, 7)
		for i, name := range dayNames {
			var d DayHours
			if v, ok := raw[name]; ok {
				if err := json.Unmarshal(v, &d); err != nil {
					d = DayHours{}
				}
			}
			w.Days[time.Weekday(i)] = d
		}
		return nil
	}
	w.Start = rawString(raw["start"])
	w.End = rawString(raw["end"])
	return nil
}

func (w WorkingHours) MarshalJSON() ([]byte, error) {
	if !w.Weekly {
		return json.Marshal(map[string]string{"start": w.Start, "end": w.End})
	}
	out := make(map[string]DayHours, 7)
	for i, name := range dayNames {
		out[name] = w.Days[time.Weekday(i)]
	}
	return json.Marshal(out)
}

func rawString(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}
