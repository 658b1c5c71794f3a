// Package model provides capability-based model selection for the bots.
// A bot asks for what it needs ("ranking", "writing") and the registry
// resolves that to hosted endpoints, with fallbacks when one is unhealthy.
package model

// Capability names what a bot needs from a language model.
type Capability string

const (
	// CapabilityRanking is for structured, JSON-shaped reasoning such as
	// ranking the daily fortunes.
	CapabilityRanking Capability = "ranking"

	// CapabilityWriting is for a single short piece of Korean prose.
	CapabilityWriting Capability = "writing"

	// CapabilityFast is for cheap responses.
	CapabilityFast Capability = "fast"
)

// BotCapabilities maps bot names to the capability they use by default.
var BotCapabilities = map[string]Capability{
	"fortune": CapabilityRanking,
	"nanal":   CapabilityWriting,
}

// CapabilityForBot returns the default capability for a bot.
// Unknown bots get CapabilityWriting.
func CapabilityForBot(bot string) Capability {
	if c, ok := BotCapabilities[bot]; ok {
		return c
	}
	return CapabilityWriting
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityRanking, CapabilityWriting, CapabilityFast:
		return true
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for
// unknown values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
