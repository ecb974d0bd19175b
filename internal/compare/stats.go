package compare

import (
	"sort"

	"github.com/shopspring/decimal"
)

// StatPlaces is the precision statistics are rounded to
const StatPlaces = 2

var two = decimal.NewFromInt(2)

// Median of values; an even count averages the two middle values
func Median(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid].Round(StatPlaces), true
	}
	return sorted[mid-1].Add(sorted[mid]).DivRound(two, StatPlaces), true
}

// Mean is the arithmetic mean of values
func Mean(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(values))), StatPlaces), true
}
