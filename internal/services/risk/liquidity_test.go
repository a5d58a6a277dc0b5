package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"RiskPulse/internal/domain/models"
)

func TestClassifyLiquidity(t *testing.T) {
	cases := []struct {
		name   string
		volume float64
		spread float64
		want   models.RiskLevel
	}{
		{"deep and tight", 20_000_000, 0.005, models.RiskLow},
		{"deep but wide", 20_000_000, 0.02, models.RiskMedium},
		{"exact low volume bound", 10_000_000, 0.005, models.RiskMedium},
		{"medium", 5_000_000, 0.04, models.RiskMedium},
		{"medium volume wide spread", 5_000_000, 0.05, models.RiskHigh},
		{"thin", 500_000, 0.2, models.RiskHigh},
		{"exact high volume bound", 100_000, 0.001, models.RiskExtreme},
		{"illiquid", 50_000, 0.08, models.RiskExtreme},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyLiquidity(tc.volume, tc.spread); got != tc.want {
				t.Fatalf("ClassifyLiquidity(%v, %v) = %s, want %s", tc.volume, tc.spread, got, tc.want)
			}
		})
	}
}

func TestClassifyLiquidityTotal(t *testing.T) {
	valid := map[models.RiskLevel]bool{
		models.RiskLow: true, models.RiskMedium: true, models.RiskHigh: true, models.RiskExtreme: true,
	}
	volumes := []float64{0, 1, 99_999, 100_000, 100_001, 999_999, 1_000_001, 9_999_999, 10_000_001, 1e12}
	spreads := []float64{0, 0.0099, 0.01, 0.049, 0.05, 0.5, 10}
	for _, v := range volumes {
		for _, s := range spreads {
			if got := ClassifyLiquidity(v, s); !valid[got] {
				t.Fatalf("ClassifyLiquidity(%v, %v) returned unknown level %q", v, s, got)
			}
		}
	}
}

func TestAssessLiquidity(t *testing.T) {
	got := AssessLiquidity([]models.LiquiditySample{
		{Symbol: "X", Volume24h: decimal.NewFromInt(40_000), Spread: 0.06},
		{Symbol: "X", Volume24h: decimal.NewFromInt(60_000), Spread: 0.10},
	})
	if got.Level != models.RiskExtreme {
		t.Fatalf("level = %s, want extreme", got.Level)
	}
	if got.AvgVolume != 50_000 || got.Samples != 2 || got.Status != models.StatusOK {
		t.Fatalf("unexpected assessment: %+v", got)
	}

	empty := AssessLiquidity(nil)
	if empty.Status != models.StatusInsufficientData || empty.Level != models.RiskExtreme {
		t.Fatalf("empty samples: %+v", empty)
	}
}
