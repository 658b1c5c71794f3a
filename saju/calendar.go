package saju

import (
	"fmt"
	"time"
)

// KST is Korea Standard Time. Korea has no daylight saving, so a fixed zone
// avoids depending on the tz database.
var KST = time.FixedZone("KST", 9*60*60)

// julianDayUnixEpoch is the Julian day number of 1970-01-01.
const julianDayUnixEpoch = 2440588

// Pillar is a sexagenary (60-cycle) stem/branch pair.
type Pillar struct {
	Stem   Stem
	Branch Branch
}

// Korean returns the two-syllable name, e.g. "무오".
func (p Pillar) Korean() string {
	return p.Stem.String() + p.Branch.String()
}

// String returns the day pillar with its suffix, e.g. "무오일".
func (p Pillar) String() string {
	return p.Korean() + "일"
}

// Index returns the position of the pillar in the 60-cycle, 0 being 갑자.
func (p Pillar) Index() int {
	for i := 0; i < 60; i++ {
		if Stem(i%stemCount) == p.Stem && Branch(i%branchCount) == p.Branch {
			return i
		}
	}
	return -1
}

// DayPillarOf returns the day pillar of the civil date of t, taken in t's
// own location.
func DayPillarOf(t time.Time) Pillar {
	idx := int(mod(julianDay(t)-11, 60))
	return Pillar{Stem: Stem(idx % stemCount), Branch: Branch(idx % branchCount)}
}

// julianDay returns the Julian day number of the civil date of t.
func julianDay(t time.Time) int64 {
	y, m, d := t.Date()
	civil := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return floorDiv(civil.Unix(), 86400) + julianDayUnixEpoch
}

// FormatKoreanDate renders a date as "2025년 11월 10일".
func FormatKoreanDate(t time.Time) string {
	return fmt.Sprintf("%d년 %d월 %d일", t.Year(), int(t.Month()), t.Day())
}

func mod(a, n int64) int64 {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

func floorDiv(a, n int64) int64 {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}
