package saju

// Persona is a named IT job role bound to a day-master stem.
type Persona struct {
	Name string
	Stem Stem
	// Role is a short English description handed to the LLM.
	Role string
}

// Signature returns the persona's day-master signature.
func (p Persona) Signature() Signature {
	return p.Stem.Signature()
}

// Personas is the fixed catalog, one yang stem per element.
var Personas = []Persona{
	{Name: "[목(木) PM]", Stem: Gap, Role: "Planning, Leadership"},
	{Name: "[화(火) 디자이너]", Stem: Byeong, Role: "Creativity, Expression"},
	{Name: "[토(土) 인프라/DBA]", Stem: Mu, Role: "Stability, Mediation"},
	{Name: "[금(金) 개발자]", Stem: Gyeong, Role: "Logic, Decisiveness"},
	{Name: "[수(水) DevOps/SRE]", Stem: Im, Role: "Flexibility, Flow"},
}

// Reading is a persona's Shipshin for one day stem.
type Reading struct {
	Persona  Persona
	Shipshin Shipshin
}

// ReadAll classifies every persona against the given day stem, in catalog
// order.
func ReadAll(personas []Persona, day Stem) []Reading {
	ref := day.Signature()
	readings := make([]Reading, len(personas))
	for i, p := range personas {
		readings[i] = Reading{Persona: p, Shipshin: Classify(p.Signature(), ref)}
	}
	return readings
}
