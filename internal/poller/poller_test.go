package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/ws"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type mockTabLister struct {
	fn func(ctx context.Context, companyID uuid.UUID) ([]domain.TabSummary, error)
}

func (m *mockTabLister) GetAllTabs(ctx context.Context, companyID uuid.UUID) ([]domain.TabSummary, error) {
	return m.fn(ctx, companyID)
}

type mockBroadcaster struct {
	companies []uuid.UUID
	events    []ws.Event
	rooms     []uuid.UUID
}

func (m *mockBroadcaster) ConnectedCompanies() []uuid.UUID { return m.companies }
func (m *mockBroadcaster) BroadcastToCompany(companyID uuid.UUID, event ws.Event) {
	m.rooms = append(m.rooms, companyID)
	m.events = append(m.events, event)
}

func summaries(total string) []domain.TabSummary {
	d, _ := decimal.NewFromString(total)
	return []domain.TabSummary{{
		TargetType:   "TABLE",
		TargetNumber: "5",
		Status:       "OCCUPIED",
		Total:        d,
	}}
}

func TestPoll_BroadcastsOnlyOnChange(t *testing.T) {
	companyID := uuid.New()
	board := summaries("25.00")
	lister := &mockTabLister{fn: func(ctx context.Context, cid uuid.UUID) ([]domain.TabSummary, error) {
		return board, nil
	}}
	hub := &mockBroadcaster{companies: []uuid.UUID{companyID}}
	p := New(lister, hub, time.Second)

	ctx := context.Background()
	p.poll(ctx)
	p.poll(ctx)

	// Identical board twice: one initial push, no repeat.
	if len(hub.events) != 1 {
		t.Fatalf("events after identical polls: got %d, want 1", len(hub.events))
	}
	if hub.events[0].Type != ws.EventTypeTabUpdate {
		t.Errorf("event type: got %s", hub.events[0].Type)
	}
	if hub.rooms[0] != companyID {
		t.Errorf("event sent to wrong room")
	}

	board = summaries("29.00")
	p.poll(ctx)
	if len(hub.events) != 2 {
		t.Fatalf("events after board change: got %d, want 2", len(hub.events))
	}
}

func TestPoll_OnlyConnectedCompaniesAreRead(t *testing.T) {
	var asked []uuid.UUID
	lister := &mockTabLister{fn: func(ctx context.Context, cid uuid.UUID) ([]domain.TabSummary, error) {
		asked = append(asked, cid)
		return nil, nil
	}}
	hub := &mockBroadcaster{}
	p := New(lister, hub, time.Second)

	p.poll(context.Background())
	if len(asked) != 0 {
		t.Fatalf("polled %d companies with no watchers connected", len(asked))
	}

	companyID := uuid.New()
	hub.companies = []uuid.UUID{companyID}
	p.poll(context.Background())
	if len(asked) != 1 || asked[0] != companyID {
		t.Fatalf("asked: %v, want exactly the connected company", asked)
	}
}

func TestPoll_ReadErrorSkipsCompanyOnly(t *testing.T) {
	healthy := uuid.New()
	broken := uuid.New()
	lister := &mockTabLister{fn: func(ctx context.Context, cid uuid.UUID) ([]domain.TabSummary, error) {
		if cid == broken {
			return nil, errors.New("db unavailable")
		}
		return summaries("10.00"), nil
	}}
	hub := &mockBroadcaster{companies: []uuid.UUID{broken, healthy}}
	p := New(lister, hub, time.Second)

	p.poll(context.Background())

	if len(hub.events) != 1 || hub.rooms[0] != healthy {
		t.Fatalf("expected one broadcast to the healthy company, got %d (rooms %v)", len(hub.events), hub.rooms)
	}
}

func TestPoll_SnapshotResetsWhenWatchersLeave(t *testing.T) {
	companyID := uuid.New()
	lister := &mockTabLister{fn: func(ctx context.Context, cid uuid.UUID) ([]domain.TabSummary, error) {
		return summaries("25.00"), nil
	}}
	hub := &mockBroadcaster{companies: []uuid.UUID{companyID}}
	p := New(lister, hub, time.Second)

	ctx := context.Background()
	p.poll(ctx)

	// Last watcher disconnects, then a new one connects. The unchanged
	// board must still be pushed so the new watcher sees it.
	hub.companies = nil
	p.poll(ctx)
	hub.companies = []uuid.UUID{companyID}
	p.poll(ctx)

	if len(hub.events) != 2 {
		t.Fatalf("events: got %d, want 2 (initial push repeats after reconnect)", len(hub.events))
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	lister := &mockTabLister{fn: func(ctx context.Context, cid uuid.UUID) ([]domain.TabSummary, error) {
		return nil, nil
	}}
	p := New(lister, &mockBroadcaster{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancel")
	}
}
