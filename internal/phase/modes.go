package phase

import "time"

// Session modes. Each mode has one canonical phase table; the mode is carried
// explicitly on the session rather than inferred from which view renders it.
const (
	ModeCircle = "circle" // full 60-minute circle
	ModeFlash  = "flash"  // condensed 30-minute flash-card format
)

// Canonical phase names shared by both modes.
const (
	NameInduction  = "Induction"
	NameAnchor     = "Anchor Story"
	NameReflection = "Circle Reflection"
	NameWeaving    = "Weaving"
	NameClosure    = "Closure"
)

// ForMode returns the canonical timeline for a session mode. Unknown modes
// fall back to the circle table.
func ForMode(mode string) *Timeline {
	switch mode {
	case ModeFlash:
		return NewTimeline([]Phase{
			{Name: NameInduction, Duration: 180 * time.Second, Description: "Creating sacred space together"},
			{Name: NameAnchor, Duration: 240 * time.Second, Description: "Setting the thematic foundation"},
			{Name: NameReflection, Duration: 840 * time.Second, Description: "Authentic story sharing"},
			{Name: NameWeaving, Duration: 360 * time.Second, Description: "Connecting shared wisdom"},
			{Name: NameClosure, Duration: 180 * time.Second, Description: "Blessing and gratitude"},
		})
	default:
		return NewTimeline([]Phase{
			{Name: NameInduction, Duration: 300 * time.Second, Description: "Creating sacred space together"},
			{Name: NameAnchor, Duration: 300 * time.Second, Description: "Setting the thematic foundation"},
			{Name: NameReflection, Duration: 1800 * time.Second, Description: "Authentic story sharing"},
			{Name: NameWeaving, Duration: 900 * time.Second, Description: "Connecting shared wisdom"},
			{Name: NameClosure, Duration: 300 * time.Second, Description: "Blessing and gratitude"},
		})
	}
}
