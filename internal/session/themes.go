package session

import (
	"fmt"
	"strings"
	"time"
)

// Theme is one entry in the fixed circle-theme table. Themes are keyed by
// the audience segment chosen in the scheduler.
type Theme struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
}

var defaultTheme = Theme{
	Key:         "corporate",
	Title:       "Bridges and Burdens",
	Subtitle:    "Exploring life's crossings and the weight we carry",
	Description: "Today we explore the metaphorical bridges we cross and the burdens we bear as we navigate life's journey.",
}

var themes = map[string]Theme{
	"corporate": defaultTheme,
	"nomads": {
		Key:         "nomads",
		Title:       "Roots and Routes",
		Subtitle:    "Stories of belonging from lives in motion",
		Description: "Today we explore what grounds us when everything around us keeps moving, and the homes we carry within.",
	},
	"students": {
		Key:         "students",
		Title:       "Thresholds and Beginnings",
		Subtitle:    "Standing at the doorways of who we are becoming",
		Description: "Today we explore the thresholds we stand before and the first steps that shape the people we become.",
	},
	"seniors": {
		Key:         "seniors",
		Title:       "Harvest and Legacy",
		Subtitle:    "Gathering a lifetime of stories worth passing on",
		Description: "Today we explore the wisdom gathered over a lifetime and the stories we choose to hand forward.",
	},
}

// ThemeFor looks a theme key up in the fixed table; unknown keys get the
// default theme so a malformed session id still yields a runnable session.
func ThemeFor(key string) Theme {
	if t, ok := themes[key]; ok {
		return t
	}
	return defaultTheme
}

// NewID builds a session identifier: "{theme}-{slot}-{epochMillis}".
func NewID(themeKey, slot string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d", themeKey, slot, now.UnixMilli())
}

// ThemeKeyFromID parses the theme key back out of a session identifier: the
// leading segment before the first hyphen.
func ThemeKeyFromID(id string) string {
	key, _, _ := strings.Cut(id, "-")
	return key
}
