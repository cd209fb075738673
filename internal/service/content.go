package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"topdivers/internal/models"

	"golang.org/x/sync/errgroup"
)

var ErrUnknownActivity = errors.New("unknown activity type")

// ContentAPI is the read side of the marketing pages.
type ContentAPI interface {
	ListDiveSites(ctx context.Context) ([]models.DiveSite, error)
	ListBlogs(ctx context.Context) ([]models.Blog, error)
	ListTestimonials(ctx context.Context) ([]models.Testimonial, error)
	GetAvailability(ctx context.Context, activityType string, activityID int64) ([]models.Availability, error)
}

// Home is the landing page payload.
type Home struct {
	DiveSites    []models.DiveSite    `json:"dive_sites"`
	Blogs        []models.Blog        `json:"blogs"`
	Testimonials []models.Testimonial `json:"testimonials"`
}

type ContentService struct {
	api ContentAPI
}

func NewContentService(api ContentAPI) *ContentService {
	return &ContentService{api: api}
}

// Home loads the landing page sections concurrently. Testimonials come
// best-rated first, blogs newest first.
func (s *ContentService) Home(ctx context.Context) (*Home, error) {
	home := &Home{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		home.DiveSites, err = s.api.ListDiveSites(gctx)
		return err
	})
	g.Go(func() (err error) {
		home.Blogs, err = s.api.ListBlogs(gctx)
		return err
	})
	g.Go(func() (err error) {
		home.Testimonials, err = s.api.ListTestimonials(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(home.Testimonials, func(i, j int) bool {
		return home.Testimonials[i].Rate > home.Testimonials[j].Rate
	})
	sort.SliceStable(home.Blogs, func(i, j int) bool {
		return home.Blogs[i].CreatedAt > home.Blogs[j].CreatedAt
	})

	if home.DiveSites == nil {
		home.DiveSites = []models.DiveSite{}
	}
	if home.Blogs == nil {
		home.Blogs = []models.Blog{}
	}
	if home.Testimonials == nil {
		home.Testimonials = []models.Testimonial{}
	}
	return home, nil
}

// AvailableDates returns the bookable days of a trip or course.
func (s *ContentService) AvailableDates(ctx context.Context, activityType string, activityID int64) ([]string, error) {
	activityType = strings.ToLower(strings.TrimSpace(activityType))
	if activityType != models.ActivityTrip && activityType != models.ActivityCourse {
		return nil, ErrUnknownActivity
	}
	days, err := s.api.GetAvailability(ctx, activityType, activityID)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(days))
	for _, d := range days {
		if d.IsAvailable {
			dates = append(dates, d.Date)
		}
	}
	sort.Strings(dates)
	return dates, nil
}
