package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/cart"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/coupons"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/inventory"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/orders"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db/models"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/ordernum"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox/payloads"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pricing"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type checkoutMetrics interface {
	IncPlaced(paymentMethod string)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PlaceOrderInput carries everything the buyer submits at checkout. The
// delivery override, when set, replaces the standard fee for orders below
// the free-delivery threshold.
type PlaceOrderInput struct {
	ShippingAddress          types.ShippingAddress
	PaymentMethod            enums.PaymentMethod
	Notes                    *string
	DeliveryFeeOverrideCents *int64
}

// Service turns a cart into an order.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error)
}

type service struct {
	tx         txRunner
	cartRepo   *cart.Repository
	ordersRepo orders.Repository
	coupons    *coupons.Repository
	outbox     outboxPublisher
	users      userLoader
	metrics    checkoutMetrics
	pricing    pricing.Config
	now        func() time.Time
}

// NewService builds the checkout orchestrator.
func NewService(
	tx txRunner,
	cartRepo *cart.Repository,
	ordersRepo orders.Repository,
	couponRepo *coupons.Repository,
	publisher outboxPublisher,
	users userLoader,
	metrics checkoutMetrics,
	pricingCfg pricing.Config,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("checkout metrics required")
	}
	return &service{
		tx:         tx,
		cartRepo:   cartRepo,
		ordersRepo: ordersRepo,
		coupons:    couponRepo,
		outbox:     publisher,
		users:      users,
		metrics:    metrics,
		pricing:    pricingCfg,
		now:        time.Now,
	}, nil
}

// snapshotLine is one cart line re-priced against the live catalog at
// checkout time.
type snapshotLine struct {
	item        models.CartItem
	name        string
	variantName *string
	image       *string
	unitPrice   int64
}

// PlaceOrder runs the whole checkout in a single transaction: snapshot
// validation, guarded stock decrements, coupon re-validation with a guarded
// usage bump, order insert, cart clear, and the order.created outbox row.
// Any failure rolls the entire attempt back.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	var dto *orders.OrderDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		record, err := cartRepo.FindByUser(ctx, userID)
		if err != nil || len(record.Items) == 0 {
			if err != nil && !isNotFound(err) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		lines, err := snapshotCart(record)
		if err != nil {
			return err
		}

		if err := takeStock(ctx, tx, lines); err != nil {
			return err
		}

		discount := int64(0)
		var couponCode *string
		if record.Coupon != nil {
			result, err := coupons.Validate(record.Coupon, couponLines(lines), s.now())
			if err != nil {
				return err
			}
			ok, err := s.coupons.WithTx(tx).IncrementUsage(ctx, record.Coupon.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: increment coupon usage")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "coupon usage limit reached")
			}
			discount = result.DiscountCents
			code := record.Coupon.Code
			couponCode = &code
		}

		quote := pricing.QuoteOrder(priceLines(lines), discount, s.pricing, input.DeliveryFeeOverrideCents)

		order, err := s.insertOrder(ctx, tx, userID, input, lines, quote, couponCode)
		if err != nil {
			return err
		}

		if err := cartRepo.ClearItems(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        userID,
				CustomerEmail: user.Email,
				CustomerName:  strings.TrimSpace(user.FirstName + " " + user.LastName),
				PaymentMethod: input.PaymentMethod,
				ItemCount:     len(order.Items),
				TotalCents:    order.TotalCents,
				PlacedAt:      s.now().UTC(),
			},
			Version: 1,
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit order.created")
		}

		dto = orders.NewOrderDTO(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPlaced(input.PaymentMethod.String())
	return dto, nil
}

// snapshotCart re-reads every line against the preloaded catalog rows and
// rejects anything that is no longer sellable.
func snapshotCart(record *models.CartRecord) ([]snapshotLine, error) {
	lines := make([]snapshotLine, 0, len(record.Items))
	for _, item := range record.Items {
		if item.Product == nil || !item.Product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a product in your cart is no longer available")
		}

		line := snapshotLine{
			item:      item,
			name:      item.Product.Name,
			unitPrice: item.Product.PriceCents,
		}
		if len(item.Product.ImageURLs) > 0 {
			image := item.Product.ImageURLs[0]
			line.image = &image
		}
		if item.VariantID != nil {
			if item.Variant == nil || !item.Variant.IsActive {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("the selected option for %s is no longer available", item.Product.Name))
			}
			name := item.Variant.Name
			line.variantName = &name
			line.unitPrice = item.Variant.PriceCents
		} else if len(item.Product.Variants) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s requires a variant selection", item.Product.Name))
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// takeStock decrements line by line so a shortfall can name the product
// the buyer actually sees.
func takeStock(ctx context.Context, tx *gorm.DB, lines []snapshotLine) error {
	for _, line := range lines {
		err := inventory.Decrement(ctx, tx, []inventory.Line{{
			Ref: inventory.ItemRef{ProductID: line.item.ProductID, VariantID: line.item.VariantID},
			Qty: line.item.Quantity,
		}})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock for "+line.name)
			}
			return err
		}
	}
	return nil
}

func (s *service) insertOrder(ctx context.Context, tx *gorm.DB, userID uuid.UUID, input PlaceOrderInput, lines []snapshotLine, quote pricing.Quote, couponCode *string) (*models.Order, error) {
	items := make([]models.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = models.OrderItem{
			ID:             uuid.New(),
			ProductID:      line.item.ProductID,
			VariantID:      line.item.VariantID,
			Name:           line.name,
			VariantName:    line.variantName,
			Image:          line.image,
			UnitPriceCents: line.unitPrice,
			Quantity:       line.item.Quantity,
			LineTotalCents: line.unitPrice * int64(line.item.Quantity),
		}
	}

	repo := s.ordersRepo.WithTx(tx)

	// The number generator can collide under load; one retry with a fresh
	// number covers it, the unique index catches the rest.
	for attempt := 0; attempt < 2; attempt++ {
		order := &models.Order{
			ID:               uuid.New(),
			OrderNumber:      ordernum.Generate(),
			UserID:           userID,
			Status:           enums.OrderStatusPending,
			PaymentStatus:    enums.PaymentStatusPending,
			PaymentMethod:    input.PaymentMethod,
			ShippingAddress:  input.ShippingAddress,
			CouponCode:       couponCode,
			SubtotalCents:    quote.SubtotalCents,
			DiscountCents:    quote.DiscountCents,
			DeliveryFeeCents: quote.DeliveryFeeCents,
			SurchargeCents:   quote.SurchargeCents,
			TotalCents:       quote.TotalCents,
			Notes:            input.Notes,
			Items:            items,
		}
		created, err := repo.Create(ctx, order)
		if err == nil {
			return created, nil
		}
		if attempt == 0 && isUniqueViolation(err) {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order")
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "db: could not allocate an order number")
}

func couponLines(lines []snapshotLine) []coupons.CartLine {
	out := make([]coupons.CartLine, len(lines))
	for i, line := range lines {
		out[i] = coupons.CartLine{
			ProductID:      line.item.ProductID,
			LineTotalCents: line.unitPrice * int64(line.item.Quantity),
		}
		if line.item.Product != nil {
			out[i].CategoryID = line.item.Product.CategoryID
		}
	}
	return out
}

func priceLines(lines []snapshotLine) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, line := range lines {
		out[i] = pricing.Line{UnitPriceCents: line.unitPrice, Quantity: line.item.Quantity}
	}
	return out
}
