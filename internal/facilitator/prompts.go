package facilitator

import (
	"fmt"
	"strings"

	"github.com/mentehub/circled/internal/phase"
	"github.com/mentehub/circled/internal/transcript"
)

const inductionPrompt = `Provide a welcoming introduction to the storytelling circle. Focus on creating psychological safety and explaining today's theme of '%s.' Speak as an AI facilitator - do not use physical descriptions, gestures, or human-like actions. Keep it warm but clearly digital.`

const anchorPrompt = `Share a thoughtful story about %s that will inspire personal reflection. The story should be evocative but not overly dramatic. Present it as an AI narrator sharing wisdom, not as a human storyteller with physical presence.`

const reflectionAckPrompt = `Acknowledge these participant shares with wisdom and insight. Provide thoughtful reflection on common themes. Speak as an AI guide processing and connecting their stories - avoid human mannerisms:

%s`

const reflectionInvitePrompt = `Encourage participants to share their personal experiences with %s. Create an inviting atmosphere for authentic storytelling. Speak as a supportive AI facilitator without physical gestures or human-like behaviors.`

const weavingPrompt = `Weave these individual stories into a collective narrative. Identify universal themes and wisdom that emerged. Present this as AI-generated insight connecting human experiences - no physical actions or human roleplay:

%s`

const closurePrompt = `Provide a meaningful closing reflection that honors the stories shared. Offer wisdom about the connections made and journeys explored. Conclude as an AI guide completing the session - warm but clearly digital in nature.`

// fallbackResponses is the static per-phase text substituted whenever the
// generation call fails. The session never blocks on network availability.
var fallbackResponses = []string{
	"Welcome, storytellers. I'm honored to hold space for your stories today. Let's breathe together and create a circle of trust where every voice matters.",
	"Today we explore bridges and burdens - those crossing points in life where we carry what matters most. Listen to this tale and let it awaken your own memories...",
	"I hear the courage in your sharing. Each story reveals how we navigate life's transitions. What bridges are calling to you today?",
	"From your voices, a beautiful pattern emerges. We are all bridge-builders, carrying burdens that become lighter when shared. Let me weave these threads together...",
	"As our circle closes, know that your stories have touched each heart here. May these connections continue to light your path forward. Thank you for this gift of authentic sharing.",
}

const fallbackDefault = "Thank you for bringing your authentic voice to our circle today."

// FallbackFor returns the static fallback text for a phase index.
func FallbackFor(idx int) string {
	if idx >= 0 && idx < len(fallbackResponses) {
		return fallbackResponses[idx]
	}
	return fallbackDefault
}

// PromptFor builds the phase-specific facilitation prompt. The reflection
// acknowledgment quotes the last two non-facilitator shares; the weaving
// prompt quotes every share from the reflection phase.
func PromptFor(idx int, theme string, store *transcript.Store) string {
	switch idx {
	case 0:
		return fmt.Sprintf(inductionPrompt, theme)
	case 1:
		return fmt.Sprintf(anchorPrompt, theme)
	case 2:
		recent := store.LatestShares(2)
		if len(recent) == 0 {
			return fmt.Sprintf(reflectionInvitePrompt, theme)
		}
		return fmt.Sprintf(reflectionAckPrompt, quoteShares(recent, "\n"))
	case 3:
		return fmt.Sprintf(weavingPrompt, quoteShares(store.Shares(phase.NameReflection), "\n\n"))
	case 4:
		return closurePrompt
	default:
		return ""
	}
}

func quoteShares(entries []transcript.Entry, sep string) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s: %q", e.Speaker, e.Message)
	}
	return strings.Join(lines, sep)
}
