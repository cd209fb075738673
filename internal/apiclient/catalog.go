package apiclient

import (
	"context"
	"fmt"

	"topdivers/internal/models"
)

func (c *Client) ListTrips(ctx context.Context) ([]models.Trip, error) {
	return getList[models.Trip](ctx, c, "/trips/", true)
}

func (c *Client) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	var trip models.Trip
	if err := c.getCached(ctx, fmt.Sprintf("/trips/%d", id), &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (c *Client) ListCourses(ctx context.Context) ([]models.Course, error) {
	return getList[models.Course](ctx, c, "/courses/", true)
}

func (c *Client) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := c.getCached(ctx, fmt.Sprintf("/courses/%d", id), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) ListPackages(ctx context.Context) ([]models.Package, error) {
	return getList[models.Package](ctx, c, "/packages/", true)
}

func (c *Client) GetPackage(ctx context.Context, id int64) (*models.Package, error) {
	var pkg models.Package
	if err := c.getCached(ctx, fmt.Sprintf("/packages/%d", id), &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// PackageTrips lists the trips that belong to a package.
func (c *Client) PackageTrips(ctx context.Context, packageID int64) ([]models.Trip, error) {
	return getList[models.Trip](ctx, c, fmt.Sprintf("/packages/%d/trips", packageID), true)
}

func (c *Client) ListDiveSites(ctx context.Context) ([]models.DiveSite, error) {
	return getList[models.DiveSite](ctx, c, "/divesites/", true)
}

func (c *Client) ListBlogs(ctx context.Context) ([]models.Blog, error) {
	return getList[models.Blog](ctx, c, "/blogs/", true)
}

func (c *Client) ListTestimonials(ctx context.Context) ([]models.Testimonial, error) {
	return getList[models.Testimonial](ctx, c, "/testimonials/", true)
}
