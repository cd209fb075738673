package models

import "time"

type Invoice struct {
	ID                int64              `json:"id"`
	BuyerName         string             `json:"buyer_name"`
	BuyerEmail        string             `json:"buyer_email"`
	BuyerPhone        string             `json:"buyer_phone"`
	Activity          string             `json:"activity"`
	ActivityDetails   []ActivityDetail   `json:"activity_details"`
	Amount            Amount             `json:"amount"`
	Currency          string             `json:"currency"`
	InvoiceType       string             `json:"invoice_type"`
	CouponCode        string             `json:"coupon_code,omitempty"`
	Status            string             `json:"status"`
	PickedUp          bool               `json:"picked_up"`
	PayURL            string             `json:"pay_url,omitempty"`
	DiscountBreakdown *DiscountBreakdown `json:"discount_breakdown,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// ActivityDetail is one booked line of an invoice. Trips fill TripID and the
// party, courses fill CourseID.
type ActivityDetail struct {
	TripID          int64  `json:"trip_id,omitempty"`
	CourseID        int64  `json:"course_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Adults          int    `json:"adults,omitempty"`
	Children        int    `json:"children,omitempty"`
	People          int    `json:"number_of_people,omitempty"`
	ActivityDate    string `json:"activity_date,omitempty"`
	HotelName       string `json:"hotel_name,omitempty"`
	RoomNumber      string `json:"room_number,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// DiscountBreakdown is the server-computed itemization shown at checkout.
type DiscountBreakdown struct {
	BasePrice     Amount         `json:"base_price"`
	GroupDiscount *GroupDiscount `json:"group_discount,omitempty"`
	PromoDiscount *PromoDiscount `json:"promo_discount,omitempty"`
	FinalPrice    Amount         `json:"final_price"`
}

type GroupDiscount struct {
	Percentage     float64 `json:"percentage"`
	Amount         Amount  `json:"amount"`
	AppliedBecause string  `json:"applied_because"`
}

type PromoDiscount struct {
	Percentage float64 `json:"percentage"`
	Amount     Amount  `json:"amount"`
	Code       string  `json:"code"`
}

// TotalDiscount is base_price - final_price.
func (b DiscountBreakdown) TotalDiscount() Amount {
	return b.BasePrice - b.FinalPrice
}
