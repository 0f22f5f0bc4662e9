package planner

import (
	"github.com/shopspring/decimal"

	"github.com/sawpanic/hedgehub/internal/stats"
)

// Leg identifies which price series a sized amount belongs to
type Leg string

const (
	LegA Leg = "A"
	LegB Leg = "B"
)

// Sizing splits a notional into hedged long and short legs
type Sizing struct {
	HedgeRatio  float64         `json:"hedge_ratio"` // after clamping
	Notional    decimal.Decimal `json:"notional"`
	LongLeg     Leg             `json:"long_leg"`
	ShortLeg    Leg             `json:"short_leg"`
	LongAmount  decimal.Decimal `json:"long_amount"`
	ShortAmount decimal.Decimal `json:"short_amount"`
	LongShares  decimal.Decimal `json:"long_shares"`
	ShortShares decimal.Decimal `json:"short_shares"`
}

// SizePosition splits notional as long = notional/(1+h) and
// short = notional×h/(1+h). The short amount is taken as the remainder after
// rounding the long amount to cents, so the legs always sum to the notional.
// A hedge ratio that is non-positive or non-finite is clamped to 1.0. The
// short_A_long_B signal puts the long amount on leg B; everything else treats
// leg A as the long side. Share counts are whole shares rounded down.
func SizePosition(notional decimal.Decimal, hedge, priceA, priceB float64, signal string) Sizing {
	h := stats.SizingHedge(hedge)
	if notional.IsNegative() {
		notional = decimal.Zero
	}

	hd := decimal.NewFromFloat(h)
	long := notional.DivRound(decimal.NewFromInt(1).Add(hd), 2)
	if long.GreaterThan(notional) {
		long = notional
	}
	short := notional.Sub(long)

	s := Sizing{
		HedgeRatio:  h,
		Notional:    notional,
		LongLeg:     LegA,
		ShortLeg:    LegB,
		LongAmount:  long,
		ShortAmount: short,
	}
	longPrice, shortPrice := priceA, priceB
	if signal == SignalShortALongB {
		s.LongLeg, s.ShortLeg = LegB, LegA
		longPrice, shortPrice = priceB, priceA
	}
	s.LongShares = shares(long, longPrice)
	s.ShortShares = shares(short, shortPrice)
	return s
}

func shares(amount decimal.Decimal, price float64) decimal.Decimal {
	if price <= 0 {
		return decimal.Zero
	}
	return amount.Div(decimal.NewFromFloat(price)).Floor()
}
