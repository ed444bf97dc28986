package grading

import "math"

// Categories are the fixed cognitive-domain tags, in report order.
var Categories = []string{"Verbal", "Numerical", "Logical", "Spatial", "Memory"}

// DifficultyWeights maps a difficulty tag to its scoring weight.
var DifficultyWeights = map[string]int{
	"Easy":   1,
	"Medium": 2,
	"Hard":   3,
}

// IQScale is a linear raw→IQ mapper: Z = (ratio-Center)*Spread, iq = Mean + SD*Z,
// clamped to [Min, Max].
type IQScale struct {
	Center float64
	Spread float64
	Mean   float64
	SD     float64
	Min    int
	Max    int
}

// DefaultIQScale is the scale used for the overall IQ estimate.
var DefaultIQScale = IQScale{Center: 0.5, Spread: 3.2, Mean: 100, SD: 15, Min: 60, Max: 160}

// FromRatio maps an accuracy ratio in [0,1] to a clamped IQ score.
func (s IQScale) FromRatio(ratio float64) int {
	z := (ratio - s.Center) * s.Spread
	iq := int(math.RoundToEven(s.Mean + s.SD*z))
	if iq < s.Min {
		return s.Min
	}
	if iq > s.Max {
		return s.Max
	}
	return iq
}

// CategoryIQ is the per-category map: 60 + ratio*100. It is deliberately not the
// same transform as IQScale.
func CategoryIQ(ratio float64) int {
	return int(math.RoundToEven(60 + ratio*100))
}

// Item is one question of a test together with the user's outcome on it.
type Item struct {
	Category   string
	Difficulty string
	Correct    bool
}

type CategoryResult struct {
	Category string  `json:"category"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Ratio    float64 `json:"ratio"`
	IQ       int     `json:"iq"`
}

// Summary is the full numeric outcome of a finished attempt.
type Summary struct {
	Correct         int              `json:"correct_count"`
	Total           int              `json:"total_questions"`
	ScorePercentage float64          `json:"score_percentage"`
	WeightedScore   int              `json:"weighted_score"`
	MaxWeight       int              `json:"max_weight"`
	Ratio           float64          `json:"ratio"`
	IQ              int              `json:"iq_score"`
	Categories      []CategoryResult `json:"category_results"`
}

// Summarize scores a set of items. Empty inputs produce zero ratios, never errors.
func Summarize(items []Item, scale IQScale) Summary {
	sum := Summary{Total: len(items), Categories: []CategoryResult{}}

	type bucket struct{ correct, total int }
	buckets := make(map[string]*bucket, len(Categories))

	for _, it := range items {
		w := DifficultyWeights[it.Difficulty]
		sum.MaxWeight += w
		if it.Correct {
			sum.Correct++
			sum.WeightedScore += w
		}
		b, ok := buckets[it.Category]
		if !ok {
			b = &bucket{}
			buckets[it.Category] = b
		}
		b.total++
		if it.Correct {
			b.correct++
		}
	}

	if sum.Total > 0 {
		sum.ScorePercentage = roundTo(float64(sum.Correct)/float64(sum.Total)*100, 1)
	}
	if sum.MaxWeight > 0 {
		sum.Ratio = float64(sum.WeightedScore) / float64(sum.MaxWeight)
	}
	sum.IQ = scale.FromRatio(sum.Ratio)

	for _, cat := range Categories {
		b, ok := buckets[cat]
		if !ok || b.total == 0 {
			continue
		}
		ratio := float64(b.correct) / float64(b.total)
		sum.Categories = append(sum.Categories, CategoryResult{
			Category: cat,
			Correct:  b.correct,
			Total:    b.total,
			Ratio:    ratio,
			IQ:       CategoryIQ(ratio),
		})
	}
	return sum
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(x*p) / p
}
