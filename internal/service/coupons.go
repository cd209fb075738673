package service

import (
	"context"
	"time"

	"topdivers/internal/coupon"
	"topdivers/internal/models"
)

type CouponAPI interface {
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
	CreateCoupon(ctx context.Context, c models.Coupon) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, id int64, c models.Coupon) (*models.Coupon, error)
	DeleteCoupon(ctx context.Context, id int64) error
}

// CouponView is a coupon with its derived admin state.
type CouponView struct {
	models.Coupon
	State string `json:"state"`
}

type CouponService struct {
	api       CouponAPI
	validator *coupon.Validator
	now       func() time.Time
}

func NewCouponService(api CouponAPI) *CouponService {
	return &CouponService{api: api, validator: coupon.NewValidator(), now: time.Now}
}

func (s *CouponService) List(ctx context.Context) ([]CouponView, error) {
	coupons, err := s.api.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]CouponView, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, CouponView{Coupon: c, State: coupon.State(c, now)})
	}
	return views, nil
}

// Create validates the form and creates the coupon. Invalid forms return
// coupon.FieldErrors without calling the backend.
func (s *CouponService) Create(ctx context.Context, form coupon.Form) (*models.Coupon, error) {
	if err := s.validator.Validate(&form); err != nil {
		return nil, err
	}
	return s.api.CreateCoupon(ctx, form.ToCoupon())
}

func (s *CouponService) Update(ctx context.Context, id int64, form coupon.Form) (*models.Coupon, error) {
	if err := s.validator.Validate(&form); err != nil {
		return nil, err
	}
	return s.api.UpdateCoupon(ctx, id, form.ToCoupon())
}

func (s *CouponService) Delete(ctx context.Context, id int64) error {
	return s.api.DeleteCoupon(ctx, id)
}
