package datamall

import (
	"encoding/json"
	"fmt"
)

// Response is a DataMall payload. Paginated fetches merge every page's
// records into Value and keep the first page's envelope.
type Response struct {
	Envelope map[string]json.RawMessage
	Value    []json.RawMessage
}

// Len returns the number of records in the value array.
func (r *Response) Len() int {
	return len(r.Value)
}

// MarshalJSON renders the envelope with the merged value array.
func (r *Response) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Envelope)+1)
	for k, v := range r.Envelope {
		out[k] = v
	}
	if r.Value != nil {
		raw, err := json.Marshal(r.Value)
		if err != nil {
			return nil, err
		}
		out["value"] = raw
	}
	return json.Marshal(out)
}

// Decode unmarshals the whole response into v.
func (r *Response) Decode(v any) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// DecodeRecords unmarshals every record of the value array into T.
func DecodeRecords[T any](r *Response) ([]T, error) {
	out := make([]T, 0, len(r.Value))
	for i, raw := range r.Value {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
