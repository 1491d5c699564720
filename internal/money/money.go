package money

// Money represents a monetary value stored in minor currency units.
type Money = int64

// Clamp returns the value floored at zero. No negative amount may leave
// this package.
func Clamp(v Money) Money {
	if v < 0 {
		return 0
	}
	return v
}

// Multiply returns the line total for a unit price and quantity.
// Non-positive quantities contribute nothing.
func Multiply(unit Money, qty int) Money {
	if qty <= 0 || unit <= 0 {
		return 0
	}
	return unit * Money(qty)
}

// ApplyPercent discounts the unit price by the given whole percentage,
// rounding half-up at the unit level. The result is never negative and
// never exceeds the original unit price. Percent values outside [0, 100]
// are clamped.
func ApplyPercent(unit Money, percent int) Money {
	if unit <= 0 {
		return 0
	}
	if percent <= 0 {
		return unit
	}
	if percent > 100 {
		percent = 100
	}
	discount := roundHalfUpDiv(unit*Money(percent), 100)
	if discount > unit {
		discount = unit
	}
	return unit - discount
}

// roundHalfUpDiv divides a by b rounding half-up. b must be positive.
func roundHalfUpDiv(a, b Money) Money {
	return (2*a + b) / (2 * b)
}
