package timers

import "encoding/json"

// jsonCodec lets Connect carry plain Go structs as JSON. It replaces the
// default protobuf JSON codec registered under the same name.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
