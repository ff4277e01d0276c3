package amqp

import (
	"encoding/json"
	"time"
)

// MeasureConfirmedMessage announces that a measure was confirmed and is
// ready for billing export. It carries only the id; the worker fetches the
// full row from the database.
type MeasureConfirmedMessage struct {
	ID             string    `json:"id"`
	ConfirmedValue int64     `json:"confirmed_value"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewMeasureConfirmedMessage(id string, confirmedValue int64) *MeasureConfirmedMessage {
	return &MeasureConfirmedMessage{
		ID:             id,
		ConfirmedValue: confirmedValue,
		Timestamp:      time.Now(),
	}
}

func (m *MeasureConfirmedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MeasureConfirmedMessageFromJSON(data []byte) (*MeasureConfirmedMessage, error) {
	var msg MeasureConfirmedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
