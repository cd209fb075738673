package service

import (
	"context"
	"errors"
	"testing"

	"topdivers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestContentService_Home(t *testing.T) {
	api := new(mockBackend)
	api.On("ListDiveSites", mock.Anything).Return(nil, nil)
	api.On("ListBlogs", mock.Anything).Return([]models.Blog{
		{ID: 1, Title: "Old", CreatedAt: "2024-01-01T10:00:00"},
		{ID: 2, Title: "New", CreatedAt: "2024-03-01T10:00:00"},
	}, nil)
	api.On("ListTestimonials", mock.Anything).Return([]models.Testimonial{
		{ID: 1, Name: "Ali", Rate: 3},
		{ID: 2, Name: "Sara", Rate: 5},
	}, nil)

	home, err := NewContentService(api).Home(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, home.DiveSites)
	assert.Empty(t, home.DiveSites)
	assert.Equal(t, "New", home.Blogs[0].Title)
	assert.Equal(t, "Sara", home.Testimonials[0].Name)
}

func TestContentService_HomeFails(t *testing.T) {
	api := new(mockBackend)
	api.On("ListDiveSites", mock.Anything).Return(nil, errors.New("down"))
	api.On("ListBlogs", mock.Anything).Return([]models.Blog{}, nil).Maybe()
	api.On("ListTestimonials", mock.Anything).Return([]models.Testimonial{}, nil).Maybe()

	_, err := NewContentService(api).Home(context.Background())
	assert.EqualError(t, err, "down")
}

func TestContentService_AvailableDates(t *testing.T) {
	api := new(mockBackend)
	api.On("GetAvailability", mock.Anything, "trip", int64(4)).Return([]models.Availability{
		{Date: "2024-07-03", IsAvailable: true},
		{Date: "2024-07-02", IsAvailable: false},
		{Date: "2024-07-01", IsAvailable: true},
	}, nil)

	svc := NewContentService(api)
	dates, err := svc.AvailableDates(context.Background(), " Trip ", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-07-01", "2024-07-03"}, dates)

	_, err = svc.AvailableDates(context.Background(), "package", 4)
	assert.ErrorIs(t, err, ErrUnknownActivity)
}

func TestAdminService_SetAvailability(t *testing.T) {
	api := new(mockBackend)
	want := models.Availability{Date: "2024-07-01", ActivityType: "course", ActivityID: 2, IsAvailable: true}
	api.On("SetAvailability", mock.Anything, want).Return(&want, nil)

	svc := NewAdminService(api, nil, &testLogger)
	got, err := svc.SetAvailability(context.Background(), models.Availability{
		Date: "2024-07-01", ActivityType: "COURSE", ActivityID: 2, IsAvailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "course", got.ActivityType)

	_, err = svc.SetAvailability(context.Background(), models.Availability{ActivityType: "blog"})
	assert.ErrorIs(t, err, ErrUnknownActivity)
	api.AssertNumberOfCalls(t, "SetAvailability", 1)
}
