package pricing

import "testing"

var testCfg = Config{
	FreeDeliveryThreshold: 250000,
	DeliveryFee:           24000,
	OrderSurcharge:        100,
}

func TestSubtotalSkipsNonPositiveQuantities(t *testing.T) {
	lines := []Line{
		{UnitPriceCents: 50000, Quantity: 2},
		{UnitPriceCents: 10000, Quantity: 0},
		{UnitPriceCents: 10000, Quantity: -3},
	}
	if got := Subtotal(lines); got != 100000 {
		t.Fatalf("expected subtotal 100000, got %d", got)
	}
}

func TestDeliveryFeeTiers(t *testing.T) {
	override := int64(30000)
	tests := []struct {
		name     string
		amount   int64
		override *int64
		want     int64
	}{
		{name: "below threshold pays standard fee", amount: 100000, want: 24000},
		{name: "at threshold ships free", amount: 250000, want: 0},
		{name: "above threshold ships free", amount: 400000, want: 0},
		{name: "override replaces standard fee", amount: 100000, override: &override, want: 30000},
		{name: "override cannot defeat free tier", amount: 300000, override: &override, want: 0},
	}

	for _, tt := range tests {
		if got := DeliveryFee(tt.amount, testCfg, tt.override); got != tt.want {
			t.Fatalf("%s: expected fee %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestQuoteOrderBreakdown(t *testing.T) {
	lines := []Line{
		{UnitPriceCents: 60000, Quantity: 2},
		{UnitPriceCents: 15000, Quantity: 1},
	}

	quote := QuoteOrder(lines, 20000, testCfg, nil)

	if quote.SubtotalCents != 135000 {
		t.Fatalf("unexpected subtotal: %d", quote.SubtotalCents)
	}
	if quote.DiscountCents != 20000 {
		t.Fatalf("unexpected discount: %d", quote.DiscountCents)
	}
	if quote.DeliveryFeeCents != 24000 {
		t.Fatalf("unexpected delivery fee: %d", quote.DeliveryFeeCents)
	}
	if quote.SurchargeCents != 100 {
		t.Fatalf("unexpected surcharge: %d", quote.SurchargeCents)
	}
	if quote.TotalCents != 135000-20000+24000+100 {
		t.Fatalf("unexpected total: %d", quote.TotalCents)
	}
}

func TestQuoteOrderClampsDiscount(t *testing.T) {
	lines := []Line{{UnitPriceCents: 10000, Quantity: 1}}

	quote := QuoteOrder(lines, 50000, testCfg, nil)
	if quote.DiscountCents != 10000 {
		t.Fatalf("expected discount clamped to subtotal, got %d", quote.DiscountCents)
	}
	if quote.TotalCents != 24000+100 {
		t.Fatalf("unexpected total after clamp: %d", quote.TotalCents)
	}

	quote = QuoteOrder(lines, -500, testCfg, nil)
	if quote.DiscountCents != 0 {
		t.Fatalf("expected negative discount zeroed, got %d", quote.DiscountCents)
	}
}

func TestQuoteOrderDiscountCanUnlockFreeDelivery(t *testing.T) {
	// Fee is computed on the discounted amount, so a discount can drop an
	// order below the threshold and re-introduce the fee.
	lines := []Line{{UnitPriceCents: 260000, Quantity: 1}}

	quote := QuoteOrder(lines, 20000, testCfg, nil)
	if quote.DeliveryFeeCents != 24000 {
		t.Fatalf("expected fee on discounted amount, got %d", quote.DeliveryFeeCents)
	}
}
