package domain

const (
	classicTierThreshold = 200_000
	blackTierThreshold   = 500_000
)

type Tier struct {
	Plan       string
	Background string
}

var (
	TierInfinium = Tier{
		Plan:       "INFINIUM",
		Background: "linear-gradient(135deg, #00b09b 0%, #96c93d 100%)",
	}
	TierClassic = Tier{
		Plan:       "CLASSIC",
		Background: "linear-gradient(135deg, #1A2980 0%, #26D0CE 100%)",
	}
	TierBlack = Tier{
		Plan:       "BLACK",
		Background: "linear-gradient(135deg, #232526 0%, #414345 100%)",
	}
)

// Returns the display tier for a financing amount
//
// Total over all float64 values: negative amounts and NaN fall into the lowest tier.
func ClassifyTier(amount float64) Tier {
	switch {
	case amount >= blackTierThreshold:
		return TierBlack
	case amount >= classicTierThreshold:
		return TierClassic
	default:
		return TierInfinium
	}
}
