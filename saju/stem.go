package saju

import "fmt"

// Stem is one of the ten heavenly stems, 갑 through 계.
type Stem int

const (
	Gap Stem = iota
	Eul
	Byeong
	Jeong
	Mu
	Gi
	Gyeong
	Sin
	Im
	Gye

	stemCount = 10
)

var stemNames = [stemCount]string{"갑", "을", "병", "정", "무", "기", "경", "신", "임", "계"}
var stemHanja = [stemCount]string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}

// Valid reports whether s is one of the ten stems.
func (s Stem) Valid() bool {
	return s >= Gap && s <= Gye
}

// Signature returns the element and polarity of the stem. Stems come in
// yang/yin pairs per element, in production-cycle order.
func (s Stem) Signature() Signature {
	if !s.Valid() {
		return Signature{Element: -1}
	}
	return Signature{
		Element:  Element(s / 2),
		Polarity: Polarity(s % 2),
	}
}

func (s Stem) String() string {
	if !s.Valid() {
		return "?"
	}
	return stemNames[s]
}

// Hanja returns the Chinese character of the stem.
func (s Stem) Hanja() string {
	if !s.Valid() {
		return "?"
	}
	return stemHanja[s]
}

// ParseStem looks a stem up by its Korean syllable.
func ParseStem(name string) (Stem, error) {
	for i, n := range stemNames {
		if n == name {
			return Stem(i), nil
		}
	}
	return 0, fmt.Errorf("unknown heavenly stem %q", name)
}

// Branch is one of the twelve earthly branches, 자 through 해.
type Branch int

const branchCount = 12

var branchNames = [branchCount]string{"자", "축", "인", "묘", "진", "사", "오", "미", "신", "유", "술", "해"}

func (b Branch) String() string {
	if b < 0 || b >= branchCount {
		return "?"
	}
	return branchNames[b]
}
