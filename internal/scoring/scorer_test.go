package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func km(d float64) *float64 { return &d }

func TestScoreBounds(t *testing.T) {
	distances := []*float64{nil, km(0), km(19.99), km(20), km(49.99), km(50), km(99.99), km(100), km(2500)}
	categories := []string{"Clothes", "Electronics", "", "footwear", "  Apparel  "}

	for _, d := range distances {
		for _, cat := range categories {
			for past := 0; past <= 10; past++ {
				res := Score(Input{DistanceKm: d, Category: cat, PastReturns: past})
				assert.GreaterOrEqual(t, res.Score, MinScore)
				assert.LessOrEqual(t, res.Score, MaxScore)
			}
		}
	}
}

func TestScoreMonotonicInDistance(t *testing.T) {
	// Holding category and frequency fixed, a closer pickup never scores lower.
	distances := []float64{150, 99, 49, 19, 5, 0}
	prev := -1

	for _, d := range distances {
		res := Score(Input{DistanceKm: km(d), Category: "Clothes", PastReturns: 1})
		assert.GreaterOrEqual(t, res.Score, prev, "distance %v", d)
		prev = res.Score
	}
}

func TestScoreDistanceBands(t *testing.T) {
	tests := []struct {
		dist *float64
		want int
	}{
		{km(19.99), 20 + 40 + 20 + 20}, // clamps to 100
		{km(20), 20 + 30 + 20 + 20},
		{km(49.99), 20 + 30 + 20 + 20},
		{km(50), 20 + 15 + 20 + 20},
		{km(99.99), 20 + 15 + 20 + 20},
		{km(100), 20 + 5 + 20 + 20},
		{nil, 20 + 0 + 20 + 20},
	}

	for _, tt := range tests {
		res := Score(Input{DistanceKm: tt.dist, Category: "Clothes", PastReturns: 0})
		want := tt.want
		if want > 100 {
			want = 100
		}
		assert.Equal(t, want, res.Score)
	}
}

func TestScoreFrequencyFactor(t *testing.T) {
	base := Input{DistanceKm: km(30), Category: "Footwear"}

	zero := base
	zero.PastReturns = 0
	assert.Equal(t, 90, Score(zero).Score) // 20+30+20+20

	one := base
	one.PastReturns = 1
	assert.Equal(t, 80, Score(one).Score)

	two := base
	two.PastReturns = 2
	assert.Equal(t, 80, Score(two).Score)

	three := base
	three.PastReturns = 3
	assert.Equal(t, 50, Score(three).Score) // 20+30+20-20
}

func TestScoreCategoryNormalization(t *testing.T) {
	for _, cat := range []string{"Clothes", "clothes", " CLOTHES ", "Fashion Accessories", "fashion accessories"} {
		assert.True(t, Returnable(cat), cat)
	}
	for _, cat := range []string{"Electronics", "", "cloth", "Furniture"} {
		assert.False(t, Returnable(cat), cat)
	}
}

func TestRecommendationBoundaries(t *testing.T) {
	assert.Equal(t, RecommendManualReview, recommend(70))
	assert.Equal(t, RecommendApprove, recommend(71))
	assert.Equal(t, RecommendManualReview, recommend(40))
	assert.Equal(t, RecommendReject, recommend(39))
	assert.Equal(t, RecommendApprove, recommend(100))
	assert.Equal(t, RecommendReject, recommend(0))
}

func TestScoreCleanClothesReturn(t *testing.T) {
	// Clothes, 10 km from the nearest node, first return in 30 days.
	res := Score(Input{DistanceKm: km(10), Category: "Clothes", PastReturns: 0})
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, RecommendApprove, res.Recommendation)
}

func TestScoreFrequentReturner(t *testing.T) {
	// Same pickup but the user already returned four items this month.
	res := Score(Input{DistanceKm: km(10), Category: "Clothes", PastReturns: 4})
	assert.Equal(t, 60, res.Score)
	assert.Equal(t, RecommendManualReview, res.Recommendation)
}

func TestScoreIneligibleCategoryNoWarehouse(t *testing.T) {
	res := Score(Input{DistanceKm: nil, Category: "Electronics", PastReturns: 5})
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, RecommendReject, res.Recommendation)
}
