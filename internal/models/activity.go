package models

// DiscountConfig is the per-activity discount setup edited in the admin.
type DiscountConfig struct {
	HasDiscount        bool    `json:"has_discount"`
	DiscountPercentage float64 `json:"discount_percentage"`
	RequiresMinPeople  bool    `json:"discount_requires_min_people"`
	MinPeople          int     `json:"discount_min_people"`
	AlwaysAvailable    bool    `json:"discount_always_available"`
}

type Trip struct {
	DiscountConfig
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	AdultPrice   Amount   `json:"adult_price"`
	ChildPrice   *Amount  `json:"child_price,omitempty"`
	MaxPerson    int      `json:"maxim_person"`
	Duration     any      `json:"duration"`
	DurationUnit string   `json:"duration_unit"`
	PackageID    int64    `json:"package_id,omitempty"`
	Location     string   `json:"location,omitempty"`
}

type Course struct {
	DiscountConfig
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	Price        Amount   `json:"price"`
	MaxPerson    int      `json:"maxim_person"`
	Duration     any      `json:"duration"`
	DurationUnit string   `json:"duration_unit"`
	CourseLevel  string   `json:"course_level,omitempty"`
}

type Package struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	Price        Amount   `json:"price"`
	Duration     any      `json:"duration"`
	DurationUnit string   `json:"duration_unit"`
	Trips        []Trip   `json:"trips,omitempty"`
}

type DiveSite struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

type Blog struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type Testimonial struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rate        int    `json:"rate"`
}

type Notification struct {
	ID        int64  `json:"id,omitempty"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Availability is one calendar day of an activity's availability.
type Availability struct {
	Date         string `json:"date"`
	ActivityType string `json:"activity_type"`
	ActivityID   int64  `json:"activity_id"`
	IsAvailable  bool   `json:"is_available"`
}

// AnalyticsSummary is the admin dashboard headline block.
type AnalyticsSummary struct {
	TotalRevenue   Amount         `json:"total_revenue"`
	PaidInvoices   int            `json:"paid_invoices"`
	PendingCount   int            `json:"pending_invoices"`
	ActiveCoupons  int            `json:"active_coupons"`
	TopActivities  []ActivityStat `json:"top_activities"`
	RevenueByMonth map[string]any `json:"revenue_by_month,omitempty"`
}

type ActivityStat struct {
	Name     string `json:"name"`
	Activity string `json:"activity"`
	Bookings int    `json:"bookings"`
	Revenue  Amount `json:"revenue"`
}
