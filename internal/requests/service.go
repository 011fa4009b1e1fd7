package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"helpmatch-service/internal/events"
	"helpmatch-service/internal/geo"
	"helpmatch-service/pkg/apperr"
	"helpmatch-service/pkg/kafka"
	"helpmatch-service/pkg/validation"
)

var log = logrus.WithField("prefix", "requests")

// Publisher emits lifecycle events. Delivery is fire-and-forget: a
// publish failure never rolls back or blocks the state transition.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// StatusCache receives request snapshots after each transition. May be
// nil; failures are logged and swallowed.
type StatusCache interface {
	CacheRequestStatus(ctx context.Context, requestID string, fields map[string]string) error
}

// advanceFrom lists the legal predecessor states for each status
// reachable through Advance. "accepted" is deliberately absent: the
// only way into it is a claim.
var advanceFrom = map[string][]string{
	StatusInProgress: {StatusAccepted},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {StatusOpen, StatusAccepted},
}

// Service drives the help-request lifecycle. All transitions go
// through the Store's conditional updates, never read-then-write.
type Service struct {
	store     Store
	publisher Publisher
	cache     StatusCache
}

// NewService creates a lifecycle service. cache may be nil.
func NewService(store Store, publisher Publisher, cache StatusCache) *Service {
	return &Service{store: store, publisher: publisher, cache: cache}
}

// Create validates the payload and persists a new request in "open"
// with a seeded timeline.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*HelpRequest, error) {
	switch {
	case req.RequesterID == "" || !validation.ValidateName(req.RequesterName):
		return nil, apperr.Validation("requester identity is required")
	case strings.TrimSpace(req.Title) == "":
		return nil, apperr.Validation("title is required")
	case strings.TrimSpace(req.Description) == "":
		return nil, apperr.Validation("description is required")
	case !validation.ValidateCategory(req.Category):
		return nil, apperr.Validation("unknown category")
	case !validation.ValidateUrgency(req.Urgency):
		return nil, apperr.Validation("unknown urgency")
	case req.Lat == nil || req.Lng == nil || !validation.ValidateCoordinates(*req.Lat, *req.Lng):
		return nil, apperr.Validation("valid location coordinates are required")
	}

	now := time.Now().UTC()
	r := &HelpRequest{
		ID:             uuid.New().String(),
		RequesterID:    req.RequesterID,
		RequesterName:  strings.TrimSpace(req.RequesterName),
		RequesterEmail: req.RequesterEmail,
		RequesterPhone: req.RequesterPhone,
		RequesterCity:  req.RequesterCity,
		Location:       pointFrom(req),
		Address:        req.Address,
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Category:       req.Category,
		Urgency:        req.Urgency,
		Status:         StatusOpen,
		Timeline: []TimelineEntry{{
			Status:    StatusOpen,
			Timestamp: now,
			Note:      "Help request created",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, apperr.Internal("create help request", err)
	}

	s.publishAsync(kafka.TopicRequestCreated, r.ID, events.RequestCreatedEvent{
		RequestID:     r.ID,
		RequesterID:   r.RequesterID,
		RequesterName: r.RequesterName,
		Title:         r.Title,
		Description:   r.Description,
		Category:      r.Category,
		Urgency:       r.Urgency,
		City:          r.RequesterCity,
		CreatedAt:     now.Format(time.RFC3339),
	})
	s.cacheStatus(r)

	return r, nil
}

// GetByID fetches a request.
func (s *Service) GetByID(ctx context.Context, id string) (*HelpRequest, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("fetch help request", err)
	}
	if r == nil {
		return nil, apperr.NotFound("help request")
	}
	return r, nil
}

// ListOpen returns open requests, most urgent and newest first.
func (s *Service) ListOpen(ctx context.Context, city, category string) ([]HelpRequest, error) {
	if category != "" && !validation.ValidateCategory(category) {
		return nil, apperr.Validation("unknown category")
	}
	rs, err := s.store.ListOpen(ctx, city, category)
	if err != nil {
		return nil, apperr.Internal("list open requests", err)
	}
	return rs, nil
}

// ListByRequester returns a requester's requests, newest first.
func (s *Service) ListByRequester(ctx context.Context, requesterID string) ([]HelpRequest, error) {
	rs, err := s.store.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, apperr.Internal("list requester requests", err)
	}
	return rs, nil
}

// ListByVolunteer returns the requests a volunteer has claimed.
func (s *Service) ListByVolunteer(ctx context.Context, volunteerID string) ([]HelpRequest, error) {
	rs, err := s.store.ListByVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, apperr.Internal("list volunteer requests", err)
	}
	return rs, nil
}

// Claim resolves the accept race: the store performs an atomic
// open→accepted compare-and-swap, so exactly one of N concurrent
// claims wins. Losing is a normal outcome (Claimed=false), not an
// error. The meet link is minted once and COALESCE keeps it stable for
// the life of the request.
func (s *Service) Claim(ctx context.Context, id string, vol VolunteerInfo) (*ClaimOutcome, error) {
	if vol.VolunteerID == "" || !validation.ValidateName(vol.Name) {
		return nil, apperr.Validation("volunteer identity is required")
	}

	now := time.Now().UTC()
	assigned := AssignedVolunteer{
		VolunteerID: vol.VolunteerID,
		Name:        vol.Name,
		Email:       vol.Email,
		Phone:       vol.Phone,
		AcceptedAt:  now,
	}
	entry := TimelineEntry{
		Status:    StatusAccepted,
		Timestamp: now,
		Note:      fmt.Sprintf("Accepted by volunteer %s", vol.Name),
	}
	meetLink := "https://meet.jit.si/helpmatch-" + uuid.New().String()

	claimed, err := s.store.Claim(ctx, id, assigned, meetLink, entry)
	if err != nil {
		return nil, apperr.Internal("claim help request", err)
	}

	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !claimed {
		return &ClaimOutcome{Claimed: false, Request: r}, nil
	}

	s.publishAsync(kafka.TopicRequestAccepted, r.ID, events.RequestAcceptedEvent{
		RequestID:      r.ID,
		Title:          r.Title,
		RequesterID:    r.RequesterID,
		RequesterName:  r.RequesterName,
		RequesterEmail: r.RequesterEmail,
		RequesterPhone: r.RequesterPhone,
		VolunteerID:    vol.VolunteerID,
		VolunteerName:  vol.Name,
		VolunteerPhone: vol.Phone,
		MeetLink:       derefStr(r.MeetLink),
		AcceptedAt:     now.Format(time.RFC3339),
	})
	s.cacheStatus(r)

	return &ClaimOutcome{Claimed: true, Request: r}, nil
}

// Advance moves a request along the lifecycle. Only
// accepted→in-progress, in-progress→completed and
// open|accepted→cancelled are legal; the (from,to) pair is enforced
// inside the store's conditional update.
func (s *Service) Advance(ctx context.Context, id, newStatus, note string) (*HelpRequest, error) {
	allowedFrom, ok := advanceFrom[newStatus]
	if !ok {
		return nil, apperr.InvalidTransition(fmt.Sprintf("cannot advance to %q", newStatus))
	}
	if note == "" {
		note = "Status updated to " + newStatus
	}

	now := time.Now().UTC()
	entry := TimelineEntry{Status: newStatus, Timestamp: now, Note: note}

	var completedAt *time.Time
	if newStatus == StatusCompleted {
		completedAt = &now
	}

	advanced, err := s.store.AdvanceStatus(ctx, id, newStatus, allowedFrom, entry, completedAt)
	if err != nil {
		return nil, apperr.Internal("advance help request", err)
	}

	r, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !advanced {
		return nil, apperr.InvalidTransition(
			fmt.Sprintf("cannot move from %q to %q", r.Status, newStatus))
	}

	if newStatus == StatusCompleted && r.AssignedVolunteer != nil {
		if err := s.store.IncrementVolunteerCompleted(ctx, r.AssignedVolunteer.VolunteerID); err != nil {
			log.Errorf("increment completed count for %s: %v", r.AssignedVolunteer.VolunteerID, err)
		}
		s.publishAsync(kafka.TopicRequestCompleted, r.ID, events.RequestCompletedEvent{
			RequestID:      r.ID,
			Title:          r.Title,
			RequesterID:    r.RequesterID,
			RequesterName:  r.RequesterName,
			RequesterEmail: r.RequesterEmail,
			VolunteerID:    r.AssignedVolunteer.VolunteerID,
			VolunteerName:  r.AssignedVolunteer.Name,
			VolunteerEmail: r.AssignedVolunteer.Email,
			CompletedAt:    now.Format(time.RFC3339),
		})
	}
	s.cacheStatus(r)

	return r, nil
}

// UpdateVolunteerLocation overwrites the assigned volunteer's live
// position. Last writer wins; no timeline entry is appended.
func (s *Service) UpdateVolunteerLocation(ctx context.Context, id string, lat, lng float64) (*VolunteerLocation, error) {
	if !validation.ValidateCoordinates(lat, lng) {
		return nil, apperr.Validation("invalid coordinates")
	}

	loc := VolunteerLocation{Lat: lat, Lng: lng, UpdatedAt: time.Now().UTC()}
	updated, err := s.store.SetVolunteerLocation(ctx, id, loc)
	if err != nil {
		return nil, apperr.Internal("update volunteer location", err)
	}
	if !updated {
		r, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.NotAssigned(
			fmt.Sprintf("no live tracking for request in status %q", r.Status))
	}
	return &loc, nil
}

// ---- helpers ----

func (s *Service) publishAsync(topic, key string, value any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.publisher.Publish(ctx, topic, key, value); err != nil {
			log.Errorf("publish %s for %s: %v", topic, key, err)
		}
	}()
}

func (s *Service) cacheStatus(r *HelpRequest) {
	if s.cache == nil {
		return
	}
	fields := map[string]string{
		"status":  r.Status,
		"title":   r.Title,
		"urgency": r.Urgency,
	}
	if r.AssignedVolunteer != nil {
		fields["volunteer_id"] = r.AssignedVolunteer.VolunteerID
		fields["volunteer_name"] = r.AssignedVolunteer.Name
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cache.CacheRequestStatus(ctx, r.ID, fields); err != nil {
		log.Warnf("cache snapshot for %s: %v", r.ID, err)
	}
}

func pointFrom(req CreateRequest) geo.Point {
	return geo.Point{Lat: *req.Lat, Lng: *req.Lng}
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
