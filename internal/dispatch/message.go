package dispatch

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/rentroll/internal/model"
)

// NoticeMessage is a composed notice handed to the messaging channel.
type NoticeMessage struct {
	UnitID     string          `json:"unit_id"`
	Period     string          `json:"period"`
	TenantName string          `json:"tenant_name"`
	Text       string          `json:"text"`
	TotalDue   decimal.Decimal `json:"total_due"`
	RepairFee  decimal.Decimal `json:"repair_fee"`
	ComposedAt time.Time       `json:"composed_at"`
}

// NewNoticeMessage wraps notice text with the figures it was built from.
func NewNoticeMessage(rec model.UnitPeriodRecord, bill model.BillingResult, text string) *NoticeMessage {
	return &NoticeMessage{
		UnitID:     rec.UnitID,
		Period:     rec.Period,
		TenantName: rec.TenantName,
		Text:       text,
		TotalDue:   bill.TotalDue,
		RepairFee:  bill.RepairFee,
		ComposedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NoticeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NoticeMessageFromJSON decodes a message.
func NoticeMessageFromJSON(data []byte) (*NoticeMessage, error) {
	var msg NoticeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
