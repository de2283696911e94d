package state

import (
	"strconv"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Project is the projected value of amount after years at ratePct per year,
// using simple (non-compounding) interest:
//
//	amount + amount × ratePct/100 × years
//
// It is a display estimate, not a financial model.
func Project(amount int64, ratePct int, years int) decimal.Decimal {
	principal := decimal.NewFromInt(amount)
	return principal.Add(simpleReturn(amount, ratePct, years))
}

func simpleReturn(amount int64, ratePct int, years int) decimal.Decimal {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(ratePct))).
		Div(hundred).
		Mul(decimal.NewFromInt(int64(years)))
}

// TreeProjectionYears are the horizons quoted for tree investments.
var TreeProjectionYears = []int{3, 5, 10}

// Projection is one projected value.
type Projection struct {
	Years int             `json:"years"`
	Value decimal.Decimal `json:"value"`
}

// TreeProjections quotes amount at the tree average return for each horizon.
func TreeProjections(amount int64) []Projection {
	out := make([]Projection, 0, len(TreeProjectionYears))
	for _, y := range TreeProjectionYears {
		out = append(out, Projection{Years: y, Value: Project(amount, TreeAverageROI, y)})
	}
	return out
}

// FormatNaira renders a whole-naira amount with thousands separators,
// e.g. ₦250,000.
func FormatNaira(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	n := len(digits)
	out := make([]byte, 0, n+n/3)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + "₦" + string(out)
}
