// Package saju models the five-phase element system and derives the Shipshin
// (Ten Gods) relation between two heavenly-stem signatures.
//
// Everything here is a fixed table built from literals. Nothing is mutated
// after package initialization, so all functions are safe for concurrent use.
package saju

// Element is one of the five phases. The declaration order is the production
// cycle: each element produces the next and dominates the one after that.
type Element int

const (
	Wood Element = iota
	Fire
	Earth
	Metal
	Water

	elementCount = 5
)

var elementNames = [elementCount]string{"목", "화", "토", "금", "수"}

// Valid reports whether e is one of the five phases.
func (e Element) Valid() bool {
	return e >= Wood && e <= Water
}

// Produces returns the element e generates (one step forward in the cycle).
func (e Element) Produces() Element {
	return (e + 1) % elementCount
}

// Dominates returns the element e controls (two steps forward in the cycle).
func (e Element) Dominates() Element {
	return (e + 2) % elementCount
}

// String returns the Korean name of the element.
func (e Element) String() string {
	if !e.Valid() {
		return "?"
	}
	return elementNames[e]
}

// Polarity is the yin/yang attribute of a stem.
type Polarity int

const (
	Yang Polarity = iota
	Yin
)

func (p Polarity) String() string {
	switch p {
	case Yang:
		return "yang"
	case Yin:
		return "yin"
	}
	return "?"
}

// Signature pairs an element with a polarity.
type Signature struct {
	Element  Element
	Polarity Polarity
}

func (s Signature) String() string {
	return s.Element.String() + "/" + s.Polarity.String()
}
