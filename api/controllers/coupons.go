package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/api/responses"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/api/validators"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/coupons"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/enums"
	pkgerrors "github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/errors"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/logger"
)

type createCouponRequest struct {
	Code                  string          `json:"code" validate:"required"`
	Description           *string         `json:"description,omitempty"`
	DiscountType          string          `json:"discount_type" validate:"required"`
	DiscountValue         decimal.Decimal `json:"discount_value" validate:"required"`
	MaxDiscountCents      *int64          `json:"max_discount_cents,omitempty"`
	MinPurchaseCents      int64           `json:"min_purchase_cents" validate:"min=0"`
	UsageLimit            *int            `json:"usage_limit,omitempty"`
	StartsAt              time.Time       `json:"starts_at" validate:"required"`
	ExpiresAt             time.Time       `json:"expires_at" validate:"required"`
	IsActive              *bool           `json:"is_active,omitempty"`
	ApplicableCategoryIDs []uuid.UUID     `json:"applicable_category_ids,omitempty"`
	ApplicableProductIDs  []uuid.UUID     `json:"applicable_product_ids,omitempty"`
}

type updateCouponRequest struct {
	Description           *string          `json:"description,omitempty"`
	DiscountValue         *decimal.Decimal `json:"discount_value,omitempty"`
	MaxDiscountCents      *int64           `json:"max_discount_cents,omitempty"`
	MinPurchaseCents      *int64           `json:"min_purchase_cents,omitempty"`
	UsageLimit            *int             `json:"usage_limit,omitempty"`
	StartsAt              *time.Time       `json:"starts_at,omitempty"`
	ExpiresAt             *time.Time       `json:"expires_at,omitempty"`
	IsActive              *bool            `json:"is_active,omitempty"`
	ApplicableCategoryIDs *[]uuid.UUID     `json:"applicable_category_ids,omitempty"`
	ApplicableProductIDs  *[]uuid.UUID     `json:"applicable_product_ids,omitempty"`
}

// AdminCreateCoupon registers a new coupon code.
func AdminCreateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var req createCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(req.DiscountType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount_type"))
			return
		}

		coupon, err := svc.Create(r.Context(), coupons.CreateCouponInput{
			Code:                  req.Code,
			Description:           req.Description,
			DiscountType:          discountType,
			DiscountValue:         req.DiscountValue,
			MaxDiscountCents:      req.MaxDiscountCents,
			MinPurchaseCents:      req.MinPurchaseCents,
			UsageLimit:            req.UsageLimit,
			StartsAt:              req.StartsAt,
			ExpiresAt:             req.ExpiresAt,
			IsActive:              req.IsActive,
			ApplicableCategoryIDs: req.ApplicableCategoryIDs,
			ApplicableProductIDs:  req.ApplicableProductIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

// AdminUpdateCoupon patches coupon fields. The code itself is immutable.
func AdminUpdateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		couponID, err := parsePathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), couponID, coupons.UpdateCouponInput{
			Description:           req.Description,
			DiscountValue:         req.DiscountValue,
			MaxDiscountCents:      req.MaxDiscountCents,
			MinPurchaseCents:      req.MinPurchaseCents,
			UsageLimit:            req.UsageLimit,
			StartsAt:              req.StartsAt,
			ExpiresAt:             req.ExpiresAt,
			IsActive:              req.IsActive,
			ApplicableCategoryIDs: req.ApplicableCategoryIDs,
			ApplicableProductIDs:  req.ApplicableProductIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// AdminDeleteCoupon retires a coupon.
func AdminDeleteCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		couponID, err := parsePathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminGetCoupon fetches a single coupon.
func AdminGetCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		couponID, err := parsePathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Get(r.Context(), couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, coupon)
	}
}

// AdminListCoupons lists all coupons, active or not.
func AdminListCoupons(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
