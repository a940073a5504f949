package poller

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/ws"
	"github.com/google/uuid"
)

// TabLister provides the current tab board for a company. Satisfied by
// *service.TabService.
type TabLister interface {
	GetAllTabs(ctx context.Context, companyID uuid.UUID) ([]domain.TabSummary, error)
}

// Broadcaster pushes events to companies with connected watchers.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	ConnectedCompanies() []uuid.UUID
	BroadcastToCompany(companyID uuid.UUID, event ws.Event)
}

// Poller periodically recomputes the tab board for every company that has
// at least one monitor connected and pushes a tab_update when the board
// changed since the last tick. Reads only; it never mutates orders. A
// slow or failed read for one company skips that tick for that company
// and nothing else.
type Poller struct {
	tabs     TabLister
	hub      Broadcaster
	interval time.Duration

	// last serialized board per company, for change detection
	snapshots map[uuid.UUID]string
}

func New(tabs TabLister, hub Broadcaster, interval time.Duration) *Poller {
	return &Poller{
		tabs:      tabs,
		hub:       hub,
		interval:  interval,
		snapshots: make(map[uuid.UUID]string),
	}
}

// Run polls until the context is cancelled.
// This should be called as a goroutine: go poller.Run(ctx)
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// tabRow mirrors the REST tab summary shape so both transports show the
// same board.
type tabRow struct {
	TargetType   string `json:"target_type"`
	TargetNumber string `json:"target_number"`
	Status       string `json:"status"`
	Total        string `json:"total"`
	CustomerName string `json:"customer_name"`
}

type tabUpdatePayload struct {
	Tabs []tabRow `json:"tabs"`
}

func (p *Poller) poll(ctx context.Context) {
	connected := p.hub.ConnectedCompanies()

	// Drop snapshots for companies whose last watcher left, so a
	// reconnecting watcher always gets an initial push.
	active := make(map[uuid.UUID]bool, len(connected))
	for _, companyID := range connected {
		active[companyID] = true
	}
	for companyID := range p.snapshots {
		if !active[companyID] {
			delete(p.snapshots, companyID)
		}
	}

	for _, companyID := range connected {
		summaries, err := p.tabs.GetAllTabs(ctx, companyID)
		if err != nil {
			log.Printf("ERROR: poll tabs for company %s: %v", companyID, err)
			continue
		}

		payload := tabUpdatePayload{Tabs: make([]tabRow, len(summaries))}
		for i, s := range summaries {
			payload.Tabs[i] = tabRow{
				TargetType:   s.TargetType,
				TargetNumber: s.TargetNumber,
				Status:       s.Status,
				Total:        s.Total.StringFixed(2),
				CustomerName: s.CustomerName,
			}
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("ERROR: marshal tab update for company %s: %v", companyID, err)
			continue
		}

		if p.snapshots[companyID] == string(raw) {
			continue
		}
		p.snapshots[companyID] = string(raw)

		p.hub.BroadcastToCompany(companyID, ws.Event{
			Type:    ws.EventTypeTabUpdate,
			Payload: raw,
		})
	}
}
