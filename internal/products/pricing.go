package products

// FinalPrice is the unit price after the product level discount, floored to
// the smallest currency unit. Cart subtotals and checkout both price lines
// through this one function.
func FinalPrice(price int64, discountPercent int) int64 {
	if discountPercent <= 0 {
		return price
	}
	if discountPercent >= 100 {
		return 0
	}
	return price * int64(100-discountPercent) / 100
}
