package saju

// LuckTier is one of the seven ordered fortune levels, from most to least
// auspicious.
type LuckTier int

const (
	TierUnknown LuckTier = iota
	GreatFortune
	MediumFortune
	SmallFortune
	MixedFortune
	SmallMisfortune
	MediumMisfortune
	GreatMisfortune
)

var tierNames = map[LuckTier]string{
	GreatFortune:     "대길",
	MediumFortune:    "중길",
	SmallFortune:     "소길",
	MixedFortune:     "길흉상반",
	SmallMisfortune:  "소흉",
	MediumMisfortune: "중흉",
	GreatMisfortune:  "대흉",
}

// AllTiers lists the tiers from best to worst.
var AllTiers = []LuckTier{
	GreatFortune, MediumFortune, SmallFortune, MixedFortune,
	SmallMisfortune, MediumMisfortune, GreatMisfortune,
}

func (t LuckTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "?"
}

// ParseLuckTier maps a Korean tier name back to its tier.
func ParseLuckTier(s string) (LuckTier, bool) {
	for t, name := range tierNames {
		if name == s {
			return t, true
		}
	}
	return TierUnknown, false
}

var baseTiers = map[Shipshin]LuckTier{
	Siksin:    GreatFortune,
	Jeongjae:  MediumFortune,
	Jeonggwan: MediumFortune,
	Jeongin:   SmallFortune,
	Pyeonjae:  SmallFortune,
	Bigyeon:   MixedFortune,
	Sanggwan:  SmallMisfortune,
	Pyeonin:   MediumMisfortune,
	Geopjae:   GreatMisfortune,
	Pyeongwan: GreatMisfortune,
}

// BaseTier is the default tier of a Shipshin before any day-specific reading.
func (s Shipshin) BaseTier() LuckTier {
	if t, ok := baseTiers[s]; ok {
		return t
	}
	return TierUnknown
}
