package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"topdivers/internal/format"
	"topdivers/internal/models"
	"topdivers/internal/pricing"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	KindTrips    = "trips"
	KindCourses  = "courses"
	KindPackages = "packages"
)

const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
	SortDuration  = "duration"
)

var (
	ErrUnknownKind = errors.New("unknown catalog kind")
	ErrUnknownSort = errors.New("unknown sort order")
)

// CatalogAPI is the read side of the backend catalog.
type CatalogAPI interface {
	ListTrips(ctx context.Context) ([]models.Trip, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	ListPackages(ctx context.Context) ([]models.Package, error)
	GetPackage(ctx context.Context, id int64) (*models.Package, error)
	PackageTrips(ctx context.Context, packageID int64) ([]models.Trip, error)
}

// Filter narrows and orders a catalog listing.
type Filter struct {
	Search       string
	MaxPrice     float64
	DiscountOnly bool
	Sort         string
	PartySize    int
	ZeroLabel    string
}

// Item is one catalog card.
type Item struct {
	Kind          string               `json:"kind"`
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	Description   string               `json:"description,omitempty"`
	Image         string               `json:"image,omitempty"`
	Duration      string               `json:"duration"`
	HasDiscount   bool                 `json:"has_discount"`
	Price         pricing.PriceDisplay `json:"price"`
	PriceLabel    string               `json:"price_label"`
	durationHours float64
}

type CatalogService struct {
	api      CatalogAPI
	currency string
	logger   *zerolog.Logger
}

func NewCatalogService(api CatalogAPI, currency string, logger *zerolog.Logger) *CatalogService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &CatalogService{api: api, currency: currency, logger: logger}
}

// List fetches kind from the backend, filters and sorts it, and prices every
// item for f.PartySize people.
func (s *CatalogService) List(ctx context.Context, kind string, f Filter) ([]Item, error) {
	if f.PartySize < 1 {
		f.PartySize = 1
	}
	switch f.Sort {
	case "", SortPriceAsc, SortPriceDesc, SortName, SortDuration:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSort, f.Sort)
	}

	var items []Item
	switch kind {
	case KindTrips:
		trips, err := s.api.ListTrips(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range trips {
			items = append(items, s.tripItem(t, f))
		}
	case KindCourses:
		courses, err := s.api.ListCourses(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range courses {
			items = append(items, s.courseItem(c, f))
		}
	case KindPackages:
		packages, err := s.api.ListPackages(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range packages {
			items = append(items, s.packageItem(p, f))
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	items = filterItems(items, f)
	sortItems(items, f.Sort)
	return items, nil
}

func (s *CatalogService) tripItem(t models.Trip, f Filter) Item {
	display := pricing.Display(t.AdultPrice.Float()*float64(f.PartySize), t.DiscountConfig, f.PartySize)
	return s.item(KindTrips, t.ID, t.Name, t.Description, t.Images, t.Duration, t.DurationUnit, t.DiscountConfig, display, f)
}

func (s *CatalogService) courseItem(c models.Course, f Filter) Item {
	display := pricing.Display(c.Price.Float()*float64(f.PartySize), c.DiscountConfig, f.PartySize)
	return s.item(KindCourses, c.ID, c.Name, c.Description, c.Images, c.Duration, c.DurationUnit, c.DiscountConfig, display, f)
}

func (s *CatalogService) packageItem(p models.Package, f Filter) Item {
	display := pricing.Display(p.Price.Float(), models.DiscountConfig{}, f.PartySize)
	return s.item(KindPackages, p.ID, p.Name, p.Description, p.Images, p.Duration, p.DurationUnit, models.DiscountConfig{}, display, f)
}

func (s *CatalogService) item(kind string, id int64, name, desc string, images []string, duration any, unit string, cfg models.DiscountConfig, display pricing.PriceDisplay, f Filter) Item {
	zero := f.ZeroLabel
	if zero == "" {
		zero = pricing.DefaultZeroLabel
	}
	it := Item{
		Kind:        kind,
		ID:          id,
		Name:        name,
		Description: desc,
		Duration:    format.FormatDuration(duration, unit),
		HasDiscount: cfg.HasDiscount && cfg.DiscountPercentage > 0,
		Price:       display,
		PriceLabel:  pricing.FormatPrice(float64(display.FinalPrice), s.currency, zero),
	}
	if len(images) > 0 {
		it.Image = images[0]
	}
	if h, ok := format.DurationHours(duration, unit); ok {
		it.durationHours = h
	}
	return it
}

func filterItems(items []Item, f Filter) []Item {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := items[:0]
	for _, it := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Name), search) &&
			!strings.Contains(strings.ToLower(it.Description), search) {
			continue
		}
		if f.MaxPrice > 0 && float64(it.Price.FinalPrice) > f.MaxPrice {
			continue
		}
		if f.DiscountOnly && !it.HasDiscount {
			continue
		}
		out = append(out, it)
	}
	return out
}

func sortItems(items []Item, order string) {
	var less func(a, b Item) bool
	switch order {
	case SortPriceAsc:
		less = func(a, b Item) bool { return a.Price.FinalPrice < b.Price.FinalPrice }
	case SortPriceDesc:
		less = func(a, b Item) bool { return a.Price.FinalPrice > b.Price.FinalPrice }
	case SortName:
		less = func(a, b Item) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortDuration:
		less = func(a, b Item) bool { return a.durationHours < b.durationHours }
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

// PackageDetail is a package page: the package and its trips.
type PackageDetail struct {
	Package    models.Package       `json:"package"`
	Price      pricing.PriceDisplay `json:"price"`
	PriceLabel string               `json:"price_label"`
	Duration   string               `json:"duration"`
	Trips      []Item               `json:"trips"`
}

// PackageDetail loads the package and its trips concurrently.
func (s *CatalogService) PackageDetail(ctx context.Context, id int64) (*PackageDetail, error) {
	var (
		pkg   *models.Package
		trips []models.Trip
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pkg, err = s.api.GetPackage(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		trips, err = s.api.PackageTrips(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(trips) == 0 && len(pkg.Trips) > 0 {
		trips = pkg.Trips
	}
	item := s.packageItem(*pkg, Filter{PartySize: 1})
	detail := &PackageDetail{
		Package:    *pkg,
		Price:      item.Price,
		PriceLabel: item.PriceLabel,
		Duration:   item.Duration,
		Trips:      make([]Item, 0, len(trips)),
	}
	for _, t := range trips {
		detail.Trips = append(detail.Trips, s.tripItem(t, Filter{PartySize: 1}))
	}
	return detail, nil
}
