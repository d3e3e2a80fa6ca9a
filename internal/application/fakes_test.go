package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	bookingDomain "github.com/rentnest/service-rental/internal/domain/booking"
	imageDomain "github.com/rentnest/service-rental/internal/domain/image"
	propertyDomain "github.com/rentnest/service-rental/internal/domain/property"
	"github.com/rentnest/service-rental/internal/storage"
	"github.com/rentnest/service-rental/pkg/domain"
	"github.com/rentnest/service-rental/pkg/kafka"
)

// fakeBookingRepo stores snapshots so callers never share aggregates. The
// mutex stands in for the row-level atomicity of the SQL store.
type fakeBookingRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]bookingDomain.Snapshot
	order []uuid.UUID
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{rows: make(map[uuid.UUID]bookingDomain.Snapshot)}
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return bookingDomain.ReconstructBooking(s), nil
}

func (r *fakeBookingRepo) List(_ context.Context, f bookingDomain.ListFilter) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*bookingDomain.Booking
	for i := len(r.order) - 1; i >= 0; i-- {
		s := r.rows[r.order[i]]
		switch f.Role {
		case bookingDomain.RoleRenter:
			if s.RenterID != f.UserID {
				continue
			}
		case bookingDomain.RoleOwner:
			if s.OwnerID != f.UserID {
				continue
			}
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		matched = append(matched, bookingDomain.ReconstructBooking(s))
	}
	total := int64(len(matched))
	start := domain.Offset(f.Page, f.Limit)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeBookingRepo) ListForReport(_ context.Context, f bookingDomain.ReportFilter) ([]*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, id := range r.order {
		s := r.rows[id]
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		out = append(out, bookingDomain.ReconstructBooking(s))
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, s := range r.rows {
		counts[string(s.Status)]++
	}
	return counts, nil
}

func (r *fakeBookingRepo) SumAmountByStatus(_ context.Context) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := make(map[string]float64)
	for _, s := range r.rows {
		if !s.OpenEnded {
			sums[string(s.Status)] += s.TotalAmount
		}
	}
	return sums, nil
}

func (r *fakeBookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[bk.ID()] = bk.Snapshot()
	r.order = append(r.order, bk.ID())
	return nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, bk *bookingDomain.Booking, expected bookingDomain.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rows[bk.ID()]
	if !ok || current.Status != expected {
		return bookingDomain.ErrStatusConflict
	}
	r.rows[bk.ID()] = bk.Snapshot()
	return nil
}

func (r *fakeBookingRepo) UpdateDetails(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rows[bk.ID()]
	if !ok || current.Status != bookingDomain.StatusPending || current.Version != bk.Version()-1 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	r.rows[bk.ID()] = bk.Snapshot()
	return nil
}

func (r *fakeBookingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return domain.NewNotFoundError("Booking", id.String())
	}
	if !s.Status.IsTerminal() {
		return domain.NewInvalidStateError("delete booking", string(s.Status))
	}
	delete(r.rows, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeBookingRepo) status(id uuid.UUID) bookingDomain.BookingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id].Status
}

type fakePropertyRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]propertyDomain.Snapshot
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{rows: make(map[uuid.UUID]propertyDomain.Snapshot)}
}

func (r *fakePropertyRepo) FindByID(_ context.Context, id uuid.UUID) (*propertyDomain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("Property", id.String())
	}
	return propertyDomain.Reconstruct(s), nil
}

func (r *fakePropertyRepo) filter(keep func(propertyDomain.Snapshot) bool, page, limit int) ([]*propertyDomain.Property, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []propertyDomain.Snapshot
	for _, s := range r.rows {
		if keep(s) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	start := domain.Offset(page, limit)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]*propertyDomain.Property, 0, end-start)
	for _, s := range matched[start:end] {
		out = append(out, propertyDomain.Reconstruct(s))
	}
	return out, int64(len(matched))
}

func (r *fakePropertyRepo) FindByOwnerID(_ context.Context, ownerID uuid.UUID, page, limit int) ([]*propertyDomain.Property, int64, error) {
	props, total := r.filter(func(s propertyDomain.Snapshot) bool { return s.OwnerID == ownerID }, page, limit)
	return props, total, nil
}

func (r *fakePropertyRepo) Search(_ context.Context, f propertyDomain.SearchFilter) ([]*propertyDomain.Property, int64, error) {
	props, total := r.filter(func(s propertyDomain.Snapshot) bool {
		if s.Status != propertyDomain.StatusApproved {
			return false
		}
		if f.City != "" && !strings.EqualFold(s.Details.City, f.City) {
			return false
		}
		if f.PropertyType != nil && s.Details.PropertyType != *f.PropertyType {
			return false
		}
		if f.MinRate != nil && s.Details.MonthlyRate < *f.MinRate {
			return false
		}
		if f.MaxRate != nil && s.Details.MonthlyRate > *f.MaxRate {
			return false
		}
		if f.MinBedrooms != nil && s.Details.Bedrooms < *f.MinBedrooms {
			return false
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(s.Details.Title), strings.ToLower(f.Query)) {
			return false
		}
		return true
	}, f.Page, f.Limit)
	return props, total, nil
}

func (r *fakePropertyRepo) ListByStatus(_ context.Context, status propertyDomain.PropertyStatus, page, limit int) ([]*propertyDomain.Property, int64, error) {
	props, total := r.filter(func(s propertyDomain.Snapshot) bool { return s.Status == status }, page, limit)
	return props, total, nil
}

func (r *fakePropertyRepo) Save(_ context.Context, p *propertyDomain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID()] = p.Snapshot()
	return nil
}

func (r *fakePropertyRepo) Update(_ context.Context, p *propertyDomain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rows[p.ID()]
	if !ok || current.Version != p.Version()-1 {
		return domain.NewConflictError("property was modified by another transaction")
	}
	r.rows[p.ID()] = p.Snapshot()
	return nil
}

type fakeImageRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*imageDomain.PropertyImage
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{rows: make(map[uuid.UUID]*imageDomain.PropertyImage)}
}

func cloneImage(i *imageDomain.PropertyImage) *imageDomain.PropertyImage {
	return imageDomain.Reconstruct(i.ID(), i.PropertyID(), i.URL(), i.StorageKey(), i.ContentType(),
		i.SizeBytes(), i.IsCover(), i.Position(), i.CreatedAt())
}

func (r *fakeImageRepo) Save(_ context.Context, img *imageDomain.PropertyImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[img.ID()] = cloneImage(img)
	return nil
}

func (r *fakeImageRepo) FindByID(_ context.Context, id uuid.UUID) (*imageDomain.PropertyImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.rows[id]
	if !ok {
		return nil, domain.NewNotFoundError("Image", id.String())
	}
	return cloneImage(img), nil
}

func (r *fakeImageRepo) FindByPropertyID(_ context.Context, propertyID uuid.UUID) ([]*imageDomain.PropertyImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*imageDomain.PropertyImage
	for _, img := range r.rows {
		if img.PropertyID() == propertyID {
			out = append(out, cloneImage(img))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position() < out[j].Position() })
	return out, nil
}

func (r *fakeImageRepo) SetCover(_ context.Context, propertyID, imageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.rows[imageID]
	if !ok || target.PropertyID() != propertyID {
		return domain.NewNotFoundError("Image", imageID.String())
	}
	for id, img := range r.rows {
		if img.PropertyID() != propertyID {
			continue
		}
		r.rows[id] = imageDomain.Reconstruct(img.ID(), img.PropertyID(), img.URL(), img.StorageKey(),
			img.ContentType(), img.SizeBytes(), id == imageID, img.Position(), img.CreatedAt())
	}
	return nil
}

func (r *fakeImageRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.NewNotFoundError("Image", id.String())
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeImageRepo) covers(propertyID uuid.UUID) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, img := range r.rows {
		if img.PropertyID() == propertyID && img.IsCover() {
			ids = append(ids, img.ID())
		}
	}
	return ids
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, r io.Reader, maxBytes int64) (int64, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxBytes+1))
	if err != nil {
		return 0, err
	}
	if n > maxBytes {
		return 0, storage.ErrTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = buf.Bytes()
	return n, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *fakeBlobStore) URL(key string) string { return "/uploads/" + key }

func (s *fakeBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeRecorder struct {
	mu          sync.Mutex
	transitions map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{transitions: make(map[string]int)}
}

func (r *fakeRecorder) BookingCreated(string) {}

func (r *fakeRecorder) BookingTransitioned(action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[action+"/"+outcome]++
}

func (r *fakeRecorder) PropertyReviewed(string) {}

func (r *fakeRecorder) ImageUploaded(string, int64) {}

func (r *fakeRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions[key]
}

var errPublish = errors.New("broker unavailable")
