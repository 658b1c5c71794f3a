package saju

// Relation is the five-way relation between a day master and another stem.
type Relation int

const (
	RelationNone Relation = iota
	RelationPeer
	RelationOutput
	RelationWealth
	RelationAuthority
	RelationResource
)

func (r Relation) String() string {
	switch r {
	case RelationPeer:
		return "peer"
	case RelationOutput:
		return "output"
	case RelationWealth:
		return "wealth"
	case RelationAuthority:
		return "authority"
	case RelationResource:
		return "resource"
	}
	return "none"
}

// Shipshin is one of the ten relation labels. The zero value is
// Unclassifiable.
type Shipshin int

const (
	Unclassifiable Shipshin = iota
	Bigyeon                 // 비견: peer, same polarity
	Geopjae                 // 겁재: peer, opposite polarity
	Siksin                  // 식신: output, same polarity
	Sanggwan                // 상관: output, opposite polarity
	Pyeonjae                // 편재: wealth, same polarity
	Jeongjae                // 정재: wealth, opposite polarity
	Pyeongwan               // 편관: authority, same polarity
	Jeonggwan               // 정관: authority, opposite polarity
	Pyeonin                 // 편인: resource, same polarity
	Jeongin                 // 정인: resource, opposite polarity
)

var shipshinNames = map[Shipshin]string{
	Unclassifiable: "계산 불가",
	Bigyeon:        "비견",
	Geopjae:        "겁재",
	Siksin:         "식신",
	Sanggwan:       "상관",
	Pyeonjae:       "편재",
	Jeongjae:       "정재",
	Pyeongwan:      "편관",
	Jeonggwan:      "정관",
	Pyeonin:        "편인",
	Jeongin:        "정인",
}

// AllShipshin lists the ten labels in declaration order.
var AllShipshin = []Shipshin{
	Bigyeon, Geopjae, Siksin, Sanggwan, Pyeonjae,
	Jeongjae, Pyeongwan, Jeonggwan, Pyeonin, Jeongin,
}

// String returns the Korean label, e.g. "식신".
func (s Shipshin) String() string {
	if name, ok := shipshinNames[s]; ok {
		return name
	}
	return shipshinNames[Unclassifiable]
}

// Relation returns the relation family of the label.
func (s Shipshin) Relation() Relation {
	if s < Bigyeon || s > Jeongin {
		return RelationNone
	}
	return Relation((s-Bigyeon)/2) + RelationPeer
}

// SamePolarity reports whether the label is the same-polarity member of its
// relation pair. It is false for Unclassifiable.
func (s Shipshin) SamePolarity() bool {
	return s >= Bigyeon && s <= Jeongin && (s-Bigyeon)%2 == 0
}

// shipshinFor combines a relation with a polarity match into a label.
func shipshinFor(r Relation, same bool) Shipshin {
	if r < RelationPeer || r > RelationResource {
		return Unclassifiable
	}
	s := Bigyeon + Shipshin(r-RelationPeer)*2
	if !same {
		s++
	}
	return s
}

// RelationOf returns how reference stands to self in the element cycle.
// Exactly one relation holds for any two valid elements.
func RelationOf(self, reference Element) Relation {
	if !self.Valid() || !reference.Valid() {
		return RelationNone
	}
	switch reference {
	case self:
		return RelationPeer
	case self.Produces():
		return RelationOutput
	case self.Dominates():
		return RelationWealth
	}
	switch self {
	case reference.Dominates():
		return RelationAuthority
	case reference.Produces():
		return RelationResource
	}
	return RelationNone
}

// Classify derives the Shipshin of reference as seen from self. Inputs with
// an element outside the five phases yield Unclassifiable.
func Classify(self, reference Signature) Shipshin {
	return shipshinFor(RelationOf(self.Element, reference.Element), self.Polarity == reference.Polarity)
}
