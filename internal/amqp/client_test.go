package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{63, 30 * time.Second}, // shift overflow still capped
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"connection closed", errors.New("connection closed"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestNewMeasureConfirmedMessage(t *testing.T) {
	msg := NewMeasureConfirmedMessage("abc-123", 1235)

	if msg.ID != "abc-123" {
		t.Errorf("ID = %v, want abc-123", msg.ID)
	}
	if msg.ConfirmedValue != 1235 {
		t.Errorf("ConfirmedValue = %v, want 1235", msg.ConfirmedValue)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestMeasureConfirmedMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &MeasureConfirmedMessage{
		ID:             "abc-123",
		ConfirmedValue: 42,
		Timestamp:      timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := MeasureConfirmedMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("MeasureConfirmedMessageFromJSON() error = %v", err)
	}

	if parsedMsg.ID != msg.ID {
		t.Errorf("Parsed ID = %v, want %v", parsedMsg.ID, msg.ID)
	}
	if parsedMsg.ConfirmedValue != msg.ConfirmedValue {
		t.Errorf("Parsed ConfirmedValue = %v, want %v", parsedMsg.ConfirmedValue, msg.ConfirmedValue)
	}
	if !parsedMsg.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsedMsg.Timestamp, msg.Timestamp)
	}
}

func TestMeasureConfirmedMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"id": 42, "confirmed_value": "not_a_number"}`)

	if _, err := MeasureConfirmedMessageFromJSON(invalidJSON); err == nil {
		t.Error("MeasureConfirmedMessageFromJSON() should fail with invalid JSON")
	}
}
