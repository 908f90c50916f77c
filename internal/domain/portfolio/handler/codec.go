package handler

import (
	"encoding/json"
	"fmt"
)

// JSONCodec marshals plain Go messages for the "json" content subtype, replacing the
// protobuf-based default so handlers can use ordinary structs.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal json message: %w", err)
	}
	return nil
}
