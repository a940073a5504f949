package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, companyID uuid.UUID) *Client {
	return &Client{
		hub:       hub,
		companyID: companyID,
		send:      make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	companyID := uuid.New()
	client := mockClient(hub, companyID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[companyID] == nil {
		t.Fatal("company room not created")
	}
	if !hub.rooms[companyID][client] {
		t.Fatal("client not registered in company room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	companyID := uuid.New()
	client := mockClient(hub, companyID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[companyID] != nil {
		t.Fatal("company room not cleaned up after last client unregistered")
	}
}

func TestBroadcastStaysInCompanyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	company1 := uuid.New()
	company2 := uuid.New()

	client1 := mockClient(hub, company1)
	client2 := mockClient(hub, company2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"tabs":[]}`)
	hub.BroadcastToCompany(company1, Event{
		Type:    EventTypeTabUpdate,
		Payload: testPayload,
	})

	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != EventTypeTabUpdate {
			t.Errorf("expected type '%s', got '%s'", EventTypeTabUpdate, received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not have received another company's message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestConnectedCompanies(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	if got := hub.ConnectedCompanies(); len(got) != 0 {
		t.Fatalf("expected no connected companies, got %d", len(got))
	}

	company1 := uuid.New()
	company2 := uuid.New()
	client1 := mockClient(hub, company1)
	client2 := mockClient(hub, company2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	got := hub.ConnectedCompanies()
	if len(got) != 2 {
		t.Fatalf("connected companies: got %d, want 2", len(got))
	}
	seen := map[uuid.UUID]bool{got[0]: true, got[1]: true}
	if !seen[company1] || !seen[company2] {
		t.Errorf("connected companies missing a room: %v", got)
	}

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	got = hub.ConnectedCompanies()
	if len(got) != 1 || got[0] != company1 {
		t.Errorf("after unregister: got %v, want only company1", got)
	}
}
