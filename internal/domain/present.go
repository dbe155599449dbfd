package domain

// Presentation is the fixed visual config for a classification.
type Presentation struct {
	Classification Classification `json:"classification"`
	Icon           string         `json:"icon"`
	Color          string         `json:"color"`
	Background     string         `json:"background"`
	Border         string         `json:"border"`
	Badge          string         `json:"badge"`
}

var presentations = map[Classification]Presentation{
	Safe: {
		Classification: Safe,
		Icon:           "shield-check",
		Color:          "text-emerald-400",
		Background:     "bg-emerald-500/10",
		Border:         "border-emerald-500/20",
		Badge:          "bg-emerald-500/20 text-emerald-300",
	},
	Risky: {
		Classification: Risky,
		Icon:           "shield-alert",
		Color:          "text-amber-400",
		Background:     "bg-amber-500/10",
		Border:         "border-amber-500/20",
		Badge:          "bg-amber-500/20 text-amber-300",
	},
	Unsafe: {
		Classification: Unsafe,
		Icon:           "shield-x",
		Color:          "text-red-400",
		Background:     "bg-red-500/10",
		Border:         "border-red-500/20",
		Badge:          "bg-red-500/20 text-red-300",
	},
}

// Present maps a classification to its visual config. Unknown or empty
// classifications get the Safe config.
func Present(c Classification) Presentation {
	if p, ok := presentations[c]; ok {
		return p
	}
	return presentations[Safe]
}

// RainTier buckets an hourly rain probability for display only.
type RainTier string

const (
	RainLow    RainTier = "low"
	RainMedium RainTier = "medium"
	RainHigh   RainTier = "high"
)

// RainTierFor maps a 0–100 probability: >60 high, >30 medium, else low.
func RainTierFor(prob int) RainTier {
	switch {
	case prob > 60:
		return RainHigh
	case prob > 30:
		return RainMedium
	default:
		return RainLow
	}
}

// HourlyRow is an hourly point annotated for display.
type HourlyRow struct {
	HourlyPoint
	RainTier RainTier `json:"rain_tier"`
}

// ResultView is a forecast result with its presentation applied.
type ResultView struct {
	Result       ForecastResult `json:"result"`
	Presentation Presentation   `json:"presentation"`
	Hours        []HourlyRow    `json:"hours"`
}

// PresentResult builds the display view for a result without modifying it.
func PresentResult(r ForecastResult) ResultView {
	hours := make([]HourlyRow, len(r.EventWindowForecast))
	for i, h := range r.EventWindowForecast {
		hours[i] = HourlyRow{HourlyPoint: h, RainTier: RainTierFor(h.RainProb)}
	}
	return ResultView{
		Result:       r,
		Presentation: Present(r.Classification),
		Hours:        hours,
	}
}
