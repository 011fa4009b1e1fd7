package requests

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpmatch-service/pkg/apperr"
	"helpmatch-service/pkg/kafka"
)

// memStore is an in-memory Store whose conditional updates hold the
// same atomicity contract as the SQL ones: check and write under one
// lock, report whether the write happened.
type memStore struct {
	mu        sync.Mutex
	requests  map[string]*HelpRequest
	completed map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		requests:  make(map[string]*HelpRequest),
		completed: make(map[string]int),
	}
}

func (m *memStore) Create(_ context.Context, r *HelpRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = cloneRequest(r)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*HelpRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return cloneRequest(r), nil
}

func (m *memStore) ListOpen(_ context.Context, city, category string) ([]HelpRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HelpRequest
	for _, r := range m.requests {
		if r.Status != StatusOpen {
			continue
		}
		if city != "" && r.RequesterCity != city {
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		out = append(out, *cloneRequest(r))
	}
	return out, nil
}

func (m *memStore) ListByRequester(_ context.Context, requesterID string) ([]HelpRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HelpRequest
	for _, r := range m.requests {
		if r.RequesterID == requesterID {
			out = append(out, *cloneRequest(r))
		}
	}
	return out, nil
}

func (m *memStore) ListByVolunteer(_ context.Context, volunteerID string) ([]HelpRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HelpRequest
	for _, r := range m.requests {
		if r.AssignedVolunteer != nil && r.AssignedVolunteer.VolunteerID == volunteerID {
			out = append(out, *cloneRequest(r))
		}
	}
	return out, nil
}

func (m *memStore) Claim(_ context.Context, id string, vol AssignedVolunteer, meetLink string, entry TimelineEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != StatusOpen {
		return false, nil
	}
	r.Status = StatusAccepted
	v := vol
	r.AssignedVolunteer = &v
	if r.MeetLink == nil {
		link := meetLink
		r.MeetLink = &link
	}
	r.Timeline = append(r.Timeline, entry)
	r.UpdatedAt = entry.Timestamp
	return true, nil
}

func (m *memStore) AdvanceStatus(_ context.Context, id, to string, allowedFrom []string, entry TimelineEntry, completedAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return false, nil
	}
	legal := false
	for _, from := range allowedFrom {
		if r.Status == from {
			legal = true
			break
		}
	}
	if !legal {
		return false, nil
	}
	r.Status = to
	r.Timeline = append(r.Timeline, entry)
	if completedAt != nil {
		t := *completedAt
		r.CompletedAt = &t
	}
	r.UpdatedAt = entry.Timestamp
	return true, nil
}

func (m *memStore) SetVolunteerLocation(_ context.Context, id string, loc VolunteerLocation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.AssignedVolunteer == nil {
		return false, nil
	}
	if r.Status != StatusAccepted && r.Status != StatusInProgress {
		return false, nil
	}
	l := loc
	r.AssignedVolunteer.CurrentLocation = &l
	return true, nil
}

func (m *memStore) IncrementVolunteerCompleted(_ context.Context, volunteerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[volunteerID]++
	return nil
}

func cloneRequest(r *HelpRequest) *HelpRequest {
	c := *r
	c.Timeline = append([]TimelineEntry(nil), r.Timeline...)
	if r.AssignedVolunteer != nil {
		v := *r.AssignedVolunteer
		c.AssignedVolunteer = &v
	}
	return &c
}

// recordingPublisher captures published events so tests can wait for
// the fire-and-forget goroutine to land.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) published(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func newTestService() (*Service, *memStore, *recordingPublisher) {
	store := newMemStore()
	pub := &recordingPublisher{}
	return NewService(store, pub, nil), store, pub
}

func validCreate() CreateRequest {
	lat, lng := 12.9716, 77.5946
	return CreateRequest{
		RequesterID:    "req-1",
		RequesterName:  "Asha Rao",
		RequesterEmail: "asha@example.com",
		RequesterPhone: "+919876543210",
		RequesterCity:  "Bengaluru",
		Title:          "Need groceries picked up",
		Description:    "Weekly groceries from the local store",
		Category:       "grocery",
		Urgency:        "medium",
		Lat:            &lat,
		Lng:            &lng,
	}
}

func mustCreate(t *testing.T, svc *Service) *HelpRequest {
	t.Helper()
	r, err := svc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	return r
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"missing requester", func(r *CreateRequest) { r.RequesterID = "" }},
		{"blank title", func(r *CreateRequest) { r.Title = "   " }},
		{"blank description", func(r *CreateRequest) { r.Description = "" }},
		{"unknown category", func(r *CreateRequest) { r.Category = "plumbing" }},
		{"unknown urgency", func(r *CreateRequest) { r.Urgency = "asap" }},
		{"missing coordinates", func(r *CreateRequest) { r.Lat = nil }},
		{"latitude out of range", func(r *CreateRequest) { lat := 91.0; r.Lat = &lat }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeValidation))
		})
	}
}

func TestCreateSeedsOpenTimeline(t *testing.T) {
	svc, _, pub := newTestService()

	r := mustCreate(t, svc)

	assert.Equal(t, StatusOpen, r.Status)
	require.Len(t, r.Timeline, 1)
	assert.Equal(t, StatusOpen, r.Timeline[0].Status)
	assert.Equal(t, "Help request created", r.Timeline[0].Note)
	assert.Nil(t, r.AssignedVolunteer)
	assert.Nil(t, r.MeetLink)

	assert.Eventually(t, func() bool {
		return pub.published(kafka.TopicRequestCreated)
	}, time.Second, 10*time.Millisecond)
}

func TestClaimAssignsVolunteerOnce(t *testing.T) {
	svc, _, pub := newTestService()
	r := mustCreate(t, svc)

	out, err := svc.Claim(context.Background(), r.ID, VolunteerInfo{
		VolunteerID: "vol-1", Name: "Ravi Kumar", Email: "ravi@example.com", Phone: "+919812345678",
	})
	require.NoError(t, err)
	require.True(t, out.Claimed)

	got := out.Request
	assert.Equal(t, StatusAccepted, got.Status)
	require.NotNil(t, got.AssignedVolunteer)
	assert.Equal(t, "vol-1", got.AssignedVolunteer.VolunteerID)
	require.NotNil(t, got.MeetLink)
	assert.True(t, strings.HasPrefix(*got.MeetLink, "https://meet.jit.si/helpmatch-"))
	require.Len(t, got.Timeline, 2)
	assert.Equal(t, StatusAccepted, got.Timeline[1].Status)

	assert.Eventually(t, func() bool {
		return pub.published(kafka.TopicRequestAccepted)
	}, time.Second, 10*time.Millisecond)
}

func TestClaimLoserSeesWinner(t *testing.T) {
	svc, _, _ := newTestService()
	r := mustCreate(t, svc)

	first, err := svc.Claim(context.Background(), r.ID, VolunteerInfo{VolunteerID: "vol-1", Name: "Ravi Kumar"})
	require.NoError(t, err)
	require.True(t, first.Claimed)
	firstLink := *first.Request.MeetLink

	second, err := svc.Claim(context.Background(), r.ID, VolunteerInfo{VolunteerID: "vol-2", Name: "Meena Iyer"})
	require.NoError(t, err)
	assert.False(t, second.Claimed)
	assert.Equal(t, StatusAccepted, second.Request.Status)
	require.NotNil(t, second.Request.AssignedVolunteer)
	assert.Equal(t, "vol-1", second.Request.AssignedVolunteer.VolunteerID)
	assert.Equal(t, firstLink, *second.Request.MeetLink)
}

func TestClaimUnknownRequest(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Claim(context.Background(), "nope", VolunteerInfo{VolunteerID: "vol-1", Name: "Ravi Kumar"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	svc, _, _ := newTestService()
	r := mustCreate(t, svc)

	const n = 16
	var wg sync.WaitGroup
	wins := make(chan string, n)

	for i := 0; i < n; i++ {
		volID := "vol-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.Claim(context.Background(), r.ID, VolunteerInfo{VolunteerID: volID, Name: "Volunteer Name"})
			if err == nil && out.Claimed {
				wins <- volID
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1)

	got, err := svc.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedVolunteer)
	assert.Equal(t, winners[0], got.AssignedVolunteer.VolunteerID)
}

func TestAdvanceTransitionMatrix(t *testing.T) {
	claim := func(t *testing.T, svc *Service, id string) {
		t.Helper()
		out, err := svc.Claim(context.Background(), id, VolunteerInfo{VolunteerID: "vol-1", Name: "Ravi Kumar"})
		require.NoError(t, err)
		require.True(t, out.Claimed)
	}
	advance := func(t *testing.T, svc *Service, id, status string) {
		t.Helper()
		_, err := svc.Advance(context.Background(), id, status, "")
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		setup   func(t *testing.T, svc *Service, id string)
		target  string
		wantErr bool
	}{
		{"accepted to in-progress", claim, StatusInProgress, false},
		{"open to in-progress", nil, StatusInProgress, true},
		{"open to completed", nil, StatusCompleted, true},
		{"accepted to completed skips in-progress", claim, StatusCompleted, true},
		{"open to cancelled", nil, StatusCancelled, false},
		{"accepted to cancelled", claim, StatusCancelled, false},
		{"in-progress to cancelled", func(t *testing.T, svc *Service, id string) {
			claim(t, svc, id)
			advance(t, svc, id, StatusInProgress)
		}, StatusCancelled, true},
		{"completed to cancelled", func(t *testing.T, svc *Service, id string) {
			claim(t, svc, id)
			advance(t, svc, id, StatusInProgress)
			advance(t, svc, id, StatusCompleted)
		}, StatusCancelled, true},
		{"accepted is never an advance target", nil, StatusAccepted, true},
		{"open is never an advance target", nil, StatusOpen, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			r := mustCreate(t, svc)
			if tt.setup != nil {
				tt.setup(t, svc, r.ID)
			}

			got, err := svc.Advance(context.Background(), r.ID, tt.target, "")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, got.Status)
			assert.Equal(t, tt.target, got.Timeline[len(got.Timeline)-1].Status)
		})
	}
}

func TestAdvanceUnknownRequest(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Advance(context.Background(), "nope", StatusCancelled, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestCompleteSetsTimestampAndCredit(t *testing.T) {
	svc, store, pub := newTestService()
	r := mustCreate(t, svc)

	out, err := svc.Claim(context.Background(), r.ID, VolunteerInfo{VolunteerID: "vol-1", Name: "Ravi Kumar"})
	require.NoError(t, err)
	require.True(t, out.Claimed)

	_, err = svc.Advance(context.Background(), r.ID, StatusInProgress, "on the way")
	require.NoError(t, err)

	got, err := svc.Advance(context.Background(), r.ID, StatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, time.Now().UTC(), *got.CompletedAt, 5*time.Second)

	// timeline: open, accepted, in-progress, completed
	require.Len(t, got.Timeline, 4)
	assert.Equal(t, "on the way", got.Timeline[2].Note)
	assert.Equal(t, "Status updated to completed", got.Timeline[3].Note)

	store.mu.Lock()
	credit := store.completed["vol-1"]
	store.mu.Unlock()
	assert.Equal(t, 1, credit)

	assert.Eventually(t, func() bool {
		return pub.published(kafka.TopicRequestCompleted)
	}, time.Second, 10*time.Millisecond)
}

func TestCancelDoesNotPublish(t *testing.T) {
	svc, _, pub := newTestService()
	r := mustCreate(t, svc)

	_, err := svc.Advance(context.Background(), r.ID, StatusCancelled, "no longer needed")
	require.NoError(t, err)

	// give any stray goroutine a moment to land
	time.Sleep(50 * time.Millisecond)
	assert.False(t, pub.published(kafka.TopicRequestCompleted))
	assert.False(t, pub.published(kafka.TopicRequestAccepted))
}

func TestUpdateVolunteerLocation(t *testing.T) {
	svc, _, _ := newTestService()
	r := mustCreate(t, svc)

	// no volunteer yet
	_, err := svc.UpdateVolunteerLocation(context.Background(), r.ID, 12.98, 77.60)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotAssigned))

	out, err := svc.Claim(context.Background(), r.ID, VolunteerInfo{VolunteerID: "vol-1", Name: "Ravi Kumar"})
	require.NoError(t, err)
	require.True(t, out.Claimed)

	loc, err := svc.UpdateVolunteerLocation(context.Background(), r.ID, 12.98, 77.60)
	require.NoError(t, err)
	assert.Equal(t, 12.98, loc.Lat)
	assert.Equal(t, 77.60, loc.Lng)

	got, err := svc.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedVolunteer.CurrentLocation)
	assert.Equal(t, 12.98, got.AssignedVolunteer.CurrentLocation.Lat)

	// tracking window closes on completion
	_, err = svc.Advance(context.Background(), r.ID, StatusInProgress, "")
	require.NoError(t, err)
	_, err = svc.Advance(context.Background(), r.ID, StatusCompleted, "")
	require.NoError(t, err)

	_, err = svc.UpdateVolunteerLocation(context.Background(), r.ID, 13.0, 77.7)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNotAssigned))
}

func TestUpdateVolunteerLocationRejectsBadCoordinates(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateVolunteerLocation(context.Background(), "any", 95.0, 77.6)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}
