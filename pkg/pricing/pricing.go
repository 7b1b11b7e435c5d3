package pricing

// Line is one priced cart line. UnitPriceCents is in paisa.
type Line struct {
	UnitPriceCents int64
	Quantity       int
}

// Config carries the checkout pricing knobs, all in paisa.
type Config struct {
	FreeDeliveryThreshold int64
	DeliveryFee           int64
	OrderSurcharge        int64
}

// Quote is the full price breakdown for an order.
type Quote struct {
	SubtotalCents    int64
	DiscountCents    int64
	DeliveryFeeCents int64
	SurchargeCents   int64
	TotalCents       int64
}

// Subtotal sums line totals. Lines with non-positive quantities contribute
// nothing.
func Subtotal(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		total += line.UnitPriceCents * int64(line.Quantity)
	}
	return total
}

// DeliveryFee returns the delivery charge for an order whose discounted
// subtotal is amount. Orders at or above the free-delivery threshold ship
// free; the override, when positive, replaces the standard fee but never
// the free tier.
func DeliveryFee(amount int64, cfg Config, override *int64) int64 {
	if amount >= cfg.FreeDeliveryThreshold {
		return 0
	}
	if override != nil && *override > 0 {
		return *override
	}
	return cfg.DeliveryFee
}

// QuoteOrder assembles the final breakdown. The discount is clamped to the
// subtotal so totals never go negative.
func QuoteOrder(lines []Line, discountCents int64, cfg Config, feeOverride *int64) Quote {
	subtotal := Subtotal(lines)

	if discountCents < 0 {
		discountCents = 0
	}
	if discountCents > subtotal {
		discountCents = subtotal
	}

	discounted := subtotal - discountCents
	fee := DeliveryFee(discounted, cfg, feeOverride)

	return Quote{
		SubtotalCents:    subtotal,
		DiscountCents:    discountCents,
		DeliveryFeeCents: fee,
		SurchargeCents:   cfg.OrderSurcharge,
		TotalCents:       discounted + fee + cfg.OrderSurcharge,
	}
}
