package grpcsrv

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec replaces grpc-go's default "proto" codec with one that
// marshals the plain Go structs in this package as JSON. There is no
// protoc toolchain available to generate the usual .pb.go message types
// this service would otherwise speak, so every message here is a hand
// written struct with json tags; registering under the name "proto"
// (rather than a distinct "json" content-subtype clients would have to
// opt into) makes it the transport every call on this server actually
// uses, with no per-call grpc.CallOption required on either end.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
