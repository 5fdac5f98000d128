package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout, 문의 접수 시각의 저장 형식.
const TimestampLayout = "2006-01-02 15:04:05"

// Inquiry, 고객 문의 한 건. JSON에서는 id, timestamp와 양식 필드 값이 한 객체에 평탄하게 저장된다.
type Inquiry struct {
	ID        int
	Timestamp string
	Values    map[string]string
}

// Time parses Timestamp; the zero time is returned when it is malformed.
func (q Inquiry) Time() time.Time {
	t, err := time.ParseInLocation(TimestampLayout, q.Timestamp, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Value returns the submitted value for a field id.
func (q Inquiry) Value(fieldID string) string {
	return q.Values[fieldID]
}

func (q Inquiry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(q.Values)+2)
	for k, v := range q.Values {
		m[k] = v
	}
	m["id"] = q.ID
	m["timestamp"] = q.Timestamp
	return json.Marshal(m)
}

func (q *Inquiry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.Values = make(map[string]string, len(raw))
	for k, v := range raw {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &q.ID); err != nil {
				return fmt.Errorf("inquiry id: %w", err)
			}
		case "timestamp":
			if err := json.Unmarshal(v, &q.Timestamp); err != nil {
				return fmt.Errorf("inquiry timestamp: %w", err)
			}
		default:
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				// non-string values from hand-edited documents are kept verbatim
				s = string(v)
			}
			q.Values[k] = s
		}
	}
	return nil
}
