// Package scoring computes the return eligibility score and its
// recommendation tier. The score is advisory: it is recorded on the return
// but a human approval decision still drives the pipeline.
package scoring

import "strings"

// Score boundaries
const (
	BaseScore = 20
	MinScore  = 0
	MaxScore  = 100
)

// Recommendation tiers
const (
	RecommendApprove      = "approve"
	RecommendManualReview = "manual-review"
	RecommendReject       = "reject"
)

// returnableCategories is the closed set of categories eligible for return,
// compared after trimming and lowercasing.
var returnableCategories = map[string]bool{
	"clothes":             true,
	"footwear":            true,
	"apparel":             true,
	"fashion accessories": true,
}

// Returnable reports whether the category is eligible for return.
func Returnable(category string) bool {
	return returnableCategories[strings.ToLower(strings.TrimSpace(category))]
}

// Input carries the scoring signals for one return request.
// DistanceKm is nil when no warehouse could be assigned.
type Input struct {
	DistanceKm  *float64
	Category    string
	PastReturns int // returns created by the user in the trailing 30 days
}

// Result is the computed score and its recommendation tier.
type Result struct {
	Score          int
	Recommendation string
}

// Score applies the additive heuristic: base 20, plus distance, category and
// frequency factors, clamped to [0, 100].
func Score(in Input) Result {
	score := BaseScore

	if in.DistanceKm != nil {
		switch d := *in.DistanceKm; {
		case d < 20:
			score += 40
		case d < 50:
			score += 30
		case d < 100:
			score += 15
		default:
			score += 5
		}
	}

	if Returnable(in.Category) {
		score += 20
	}

	switch {
	case in.PastReturns == 0:
		score += 20
	case in.PastReturns < 3:
		score += 10
	default:
		score -= 20
	}

	if score < MinScore {
		score = MinScore
	}
	if score > MaxScore {
		score = MaxScore
	}

	return Result{Score: score, Recommendation: recommend(score)}
}

// recommend maps a score to its tier. The cutoffs are exact: 70 is still
// manual-review, 40 is already manual-review.
func recommend(score int) string {
	switch {
	case score > 70:
		return RecommendApprove
	case score >= 40:
		return RecommendManualReview
	default:
		return RecommendReject
	}
}
