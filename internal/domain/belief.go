package domain

// BeliefSource indicates where a belief originated.
type BeliefSource string

const (
	SourcePercept BeliefSource = "percept"
	SourceDerived BeliefSource = "derived"
	SourceInitial BeliefSource = "initial"
)

// ConfidenceAnnotation is the annotation key that sets a belief's confidence.
const ConfidenceAnnotation = "conf"

// Belief is a ground literal held true by the agent with a confidence in [0,1].
type Belief struct {
	Literal    Literal      `json:"-"`
	Source     BeliefSource `json:"source"`
	Confidence float64      `json:"confidence"`
}

// NewBelief builds a belief, taking the confidence from a numeric conf
// annotation when present and defaulting to 1.
func NewBelief(lit Literal, source BeliefSource) Belief {
	b := Belief{Literal: lit, Source: source, Confidence: 1}
	if t, ok := lit.Annotation(ConfidenceAnnotation); ok {
		if c, ok := t.(Constant); ok {
			if f, ok := c.Number(); ok {
				b.Confidence = clampUnit(f)
			}
		}
	}
	return b
}

func clampUnit(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
