package participants

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Participant is one member of the simulated circle: a fixed identity with a
// pool of canned lines it can contribute.
type Participant struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"name"`
	Personality string   `yaml:"personality"`
	Backstory   string   `yaml:"backstory"`
	Responses   []string `yaml:"responses"`
}

// ResponseSource picks the next line for a participant. The scripted pool is
// the only implementation today; a real generation source can replace it
// without touching the emitter's scheduling.
type ResponseSource interface {
	PickNext(p Participant) string
}

// RandomSource picks uniformly from the participant's canned pool.
type RandomSource struct {
	rng *rand.Rand
}

func NewRandomSource(rng *rand.Rand) *RandomSource {
	return &RandomSource{rng: rng}
}

func (s *RandomSource) PickNext(p Participant) string {
	if len(p.Responses) == 0 {
		return ""
	}
	return p.Responses[s.rng.Intn(len(p.Responses))]
}

type poolFile struct {
	Participants []Participant `yaml:"participants"`
}

// LoadPool reads a participant pool from a YAML file.
func LoadPool(path string) ([]Participant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read participants file: %w", err)
	}
	var f poolFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse participants file: %w", err)
	}
	if len(f.Participants) == 0 {
		return nil, fmt.Errorf("participants file %s defines no participants", path)
	}
	return f.Participants, nil
}

// DefaultPool returns the built-in simulated circle.
func DefaultPool() []Participant {
	return []Participant{
		{
			ID:          "ai-sarah",
			DisplayName: "Sarah Chen",
			Personality: "reflective",
			Backstory:   "Marketing professional dealing with work-life balance",
			Responses: []string{
				"I've been thinking about how we build walls to protect ourselves, but sometimes they keep out the very connections we need. Last year, I left my corporate job to freelance, and it felt like crossing a bridge I'd been afraid to even look at.",
				"The weight I carry is this constant questioning - am I enough? My bridge is learning to trust that my path doesn't have to look like everyone else's to be valid.",
				"There's something powerful about pausing in the middle of chaos to ask: what story am I telling myself about this moment? Sometimes that story needs rewriting.",
			},
		},
		{
			ID:          "ai-marcus",
			DisplayName: "Marcus Williams",
			Personality: "philosophical",
			Backstory:   "Retired teacher with deep life experience",
			Responses: []string{
				"In my 40 years of teaching, I learned that every student carries invisible bridges - some to their dreams, others away from their fears. The weight I've carried is the responsibility of guiding young minds without imposing my own limitations.",
				"Age has taught me that the heaviest burdens often become our greatest teachers, if we're willing to listen. My bridge now is between the wisdom I've gathered and the humility to keep learning.",
				"I think about my grandmother's hands and how they carried stories I'll never fully know, but somehow live within me. We're all bridge-keepers, helping others cross safely.",
			},
		},
		{
			ID:          "ai-zoe",
			DisplayName: "Zoe Park",
			Personality: "creative",
			Backstory:   "Digital nomad and freelance designer",
			Responses: []string{
				"Traveling has shown me that every city has bridges - some connect places, others connect moments in time. I carry my laptop like a bridge to anywhere, but sometimes I wonder if it's also keeping me from being fully present.",
				"There's a bridge in Prague where lovers leave locks, and I always wondered - are we trying to lock love in place, or lock out our fear of losing it? My burden is this restlessness, always seeking the next horizon.",
				"As a designer, I spend my days building visual bridges between ideas and reality. But the hardest bridge to design is the one between who I am when I'm alone and who I am with others.",
			},
		},
	}
}
