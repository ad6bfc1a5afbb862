package grpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"messaging-service/internal/observability"
)

// codecName is the sub-content-type the auth and user services accept for
// internal calls, so no generated stubs are needed on the client side.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements grpc/encoding.Codec over encoding/json.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return codecName
}

// callOptions returns the per-call options selecting the JSON codec.
func callOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(codecName)}
}

func recordOutcome(service, method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.IncUpstreamRequest(service, method, outcome)
}
