package domain

import "testing"

func TestPeekEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantID     string
		wantStatus OrderStatus
	}{
		{
			name:       "json object with id and status",
			payload:    `{"order_id":"X1","status":"ACTIVE"}`,
			wantID:     "X1",
			wantStatus: OrderStatusActive,
		},
		{
			name:    "json object without known fields",
			payload: `{"sku":"A-1","qty":3}`,
		},
		{
			name:    "non-string order_id is ignored",
			payload: `{"order_id":42}`,
		},
		{
			name:    "non-string status keeps order_id",
			payload: `{"order_id":"X1","status":1}`,
			wantID:  "X1",
		},
		{
			name:       "non-string order_id keeps status",
			payload:    `{"order_id":{"nested":true},"status":"ACTIVE"}`,
			wantStatus: OrderStatusActive,
		},
		{
			name:    "null order_id",
			payload: `{"order_id":null}`,
		},
		{
			name:    "plain text",
			payload: `just some text`,
		},
		{
			name:    "json array",
			payload: `[1,2,3]`,
		},
		{
			name:    "whitespace is trimmed",
			payload: `{"order_id":"  X2 "}`,
			wantID:  "X2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, status := PeekEnvelope([]byte(tt.payload))
			if id != tt.wantID {
				t.Errorf("id = %q, want %q", id, tt.wantID)
			}
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
		})
	}
}

func TestClonePayload(t *testing.T) {
	src := []byte("payload")
	dst := ClonePayload(src)
	src[0] = 'P'

	if string(dst) != "payload" {
		t.Fatalf("clone shares memory with source: %q", dst)
	}
	if ClonePayload(nil) != nil {
		t.Fatal("clone of nil must stay nil")
	}
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(OrderEventCreated, "order-1", OrderStatusActive)

	if event.Type != OrderEventCreated {
		t.Errorf("unexpected type: %s", event.Type)
	}
	if event.OrderID != "order-1" {
		t.Errorf("unexpected order id: %s", event.OrderID)
	}
	if event.OccurredAt.IsZero() {
		t.Error("occurred_at should be set")
	}
	if event.OccurredAt.Location().String() != "UTC" {
		t.Errorf("expected UTC timestamp, got %s", event.OccurredAt.Location())
	}
}
