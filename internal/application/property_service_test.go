package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rentnest/service-rental/pkg/domain"
)

func newPropertyService() (*PropertyService, *fakePropertyRepo) {
	repo := newFakePropertyRepo()
	return NewPropertyService(repo, newFakeRecorder(), "USD", zap.NewNop()), repo
}

func validCreateRequest() CreatePropertyRequest {
	return CreatePropertyRequest{
		Title:        "Sunny two-bedroom",
		Description:  "Close to the river",
		PropertyType: "apartment",
		Address:      "12 Riverside Rd",
		City:         "Lisbon",
		MonthlyRate:  1500,
		Bedrooms:     2,
		Bathrooms:    1,
		AreaSqm:      70,
		MapsURL:      "https://www.google.com/maps/@38.7223,-9.1393,15z",
	}
}

func TestCreateProperty(t *testing.T) {
	svc, _ := newPropertyService()
	ownerID := uuid.New()

	dto, err := svc.CreateProperty(context.Background(), ownerID, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "pending_review", dto.Status)
	assert.Equal(t, "USD", dto.Currency)
	assert.Equal(t, ownerID, dto.OwnerID)
	require.NotNil(t, dto.Latitude)
	require.NotNil(t, dto.Longitude)
	assert.InDelta(t, 38.7223, *dto.Latitude, 1e-9)
	assert.InDelta(t, -9.1393, *dto.Longitude, 1e-9)

	req := validCreateRequest()
	req.PropertyType = "castle"
	_, err = svc.CreateProperty(context.Background(), ownerID, req)
	assert.True(t, domain.IsValidation(err))
}

func TestPropertyReviewWorkflow(t *testing.T) {
	svc, _ := newPropertyService()
	ctx := context.Background()
	ownerID := uuid.New()

	created, err := svc.CreateProperty(ctx, ownerID, validCreateRequest())
	require.NoError(t, err)

	pending, err := svc.ListPendingProperties(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, created.ID, pending.Items[0].ID)

	_, err = svc.RejectProperty(ctx, created.ID, "  ")
	assert.True(t, domain.IsValidation(err))

	rejected, err := svc.RejectProperty(ctx, created.ID, "photos missing")
	require.NoError(t, err)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "photos missing", rejected.ReviewNote)

	_, err = svc.ApproveProperty(ctx, created.ID)
	assert.True(t, domain.IsInvalidTransition(err))

	resubmitted, err := svc.UpdateProperty(ctx, ownerID, created.ID, UpdatePropertyRequest{Description: "Now with photos"})
	require.NoError(t, err)
	assert.Equal(t, "pending_review", resubmitted.Status)
	assert.Empty(t, resubmitted.ReviewNote)
	assert.Equal(t, "Sunny two-bedroom", resubmitted.Title)

	approved, err := svc.ApproveProperty(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", approved.Status)

	pending, err = svc.ListPendingProperties(ctx, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, pending.Items)
}

func TestGetProperty_HidesUnapprovedListings(t *testing.T) {
	svc, _ := newPropertyService()
	ctx := context.Background()
	ownerID := uuid.New()

	created, err := svc.CreateProperty(ctx, ownerID, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.GetProperty(ctx, created.ID, uuid.Nil, false)
	assert.True(t, domain.IsNotFound(err), "anonymous: %v", err)

	_, err = svc.GetProperty(ctx, created.ID, uuid.New(), false)
	assert.True(t, domain.IsNotFound(err), "stranger: %v", err)

	_, err = svc.GetProperty(ctx, created.ID, ownerID, false)
	assert.NoError(t, err)

	_, err = svc.GetProperty(ctx, created.ID, uuid.New(), true)
	assert.NoError(t, err)

	_, err = svc.ApproveProperty(ctx, created.ID)
	require.NoError(t, err)

	dto, err := svc.GetProperty(ctx, created.ID, uuid.Nil, false)
	require.NoError(t, err)
	assert.Equal(t, "approved", dto.Status)
}

func TestUpdateAndArchive_RequireOwnership(t *testing.T) {
	svc, _ := newPropertyService()
	ctx := context.Background()
	ownerID := uuid.New()

	created, err := svc.CreateProperty(ctx, ownerID, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.UpdateProperty(ctx, uuid.New(), created.ID, UpdatePropertyRequest{Title: "Mine now"})
	assert.True(t, domain.IsForbidden(err))

	err = svc.ArchiveProperty(ctx, uuid.New(), created.ID)
	assert.True(t, domain.IsForbidden(err))

	require.NoError(t, svc.ArchiveProperty(ctx, ownerID, created.ID))

	err = svc.ArchiveProperty(ctx, ownerID, created.ID)
	assert.True(t, domain.IsInvalidTransition(err))

	_, err = svc.UpdateProperty(ctx, ownerID, created.ID, UpdatePropertyRequest{Title: "Back again"})
	assert.True(t, domain.IsInvalidState(err))

	owned, err := svc.ListOwnerProperties(ctx, ownerID, 1, 20)
	require.NoError(t, err)
	require.Len(t, owned.Items, 1)
	assert.Equal(t, "archived", owned.Items[0].Status)
}

func TestSearchProperties(t *testing.T) {
	svc, _ := newPropertyService()
	ctx := context.Background()
	ownerID := uuid.New()

	publish := func(mutate func(*CreatePropertyRequest)) uuid.UUID {
		req := validCreateRequest()
		mutate(&req)
		dto, err := svc.CreateProperty(ctx, ownerID, req)
		require.NoError(t, err)
		_, err = svc.ApproveProperty(ctx, dto.ID)
		require.NoError(t, err)
		return dto.ID
	}

	cheap := publish(func(r *CreatePropertyRequest) {
		r.Title = "Cheap room"
		r.PropertyType = "room"
		r.MonthlyRate = 400
		r.Bedrooms = 1
	})
	publish(func(r *CreatePropertyRequest) {
		r.Title = "Big house"
		r.PropertyType = "house"
		r.MonthlyRate = 3000
		r.Bedrooms = 4
	})
	publish(func(r *CreatePropertyRequest) {
		r.Title = "Porto flat"
		r.City = "Porto"
	})
	_, err := svc.CreateProperty(ctx, ownerID, validCreateRequest())
	require.NoError(t, err)

	all, err := svc.SearchProperties(ctx, SearchPropertiesQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	lisbon, err := svc.SearchProperties(ctx, SearchPropertiesQuery{City: "lisbon"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), lisbon.Total)

	maxRate := 1000.0
	budget, err := svc.SearchProperties(ctx, SearchPropertiesQuery{MaxRate: &maxRate})
	require.NoError(t, err)
	require.Len(t, budget.Items, 1)
	assert.Equal(t, cheap, budget.Items[0].ID)

	bedrooms := 3
	large, err := svc.SearchProperties(ctx, SearchPropertiesQuery{MinBedrooms: &bedrooms})
	require.NoError(t, err)
	assert.Equal(t, int64(1), large.Total)

	rooms, err := svc.SearchProperties(ctx, SearchPropertiesQuery{PropertyType: "room"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rooms.Total)

	text, err := svc.SearchProperties(ctx, SearchPropertiesQuery{Query: "HOUSE"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), text.Total)

	_, err = svc.SearchProperties(ctx, SearchPropertiesQuery{PropertyType: "castle"})
	assert.True(t, domain.IsValidation(err))

	minRate := 2000.0
	_, err = svc.SearchProperties(ctx, SearchPropertiesQuery{MinRate: &minRate, MaxRate: &maxRate})
	assert.True(t, domain.IsValidation(err))
}
