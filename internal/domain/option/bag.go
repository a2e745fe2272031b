// Package option implements the OptionBag: a dynamically-keyed,
// statically-typed configuration carrier for node Process requests,
// backed by google.golang.org/protobuf/types/known/structpb — the
// off-the-shelf "string -> {bool, number, string, list, struct}" sum
// type already transitively pulled in by the gRPC stack.
package option

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Bag wraps a structpb.Struct as the node-option carrier passed
// alongside a Process request's payload.
type Bag struct {
	s *structpb.Struct
}

// New wraps an existing structpb.Struct. A nil struct is treated as an
// empty bag.
func New(s *structpb.Struct) *Bag {
	return &Bag{s: s}
}

// NewFromMap builds a Bag from plain Go values, for use in tests and in
// the Flow Executor when assembling a step's options from a flow
// definition stored as JSON.
func NewFromMap(m map[string]any) (*Bag, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid option bag: %v", err)
	}
	return &Bag{s: s}, nil
}

// Proto returns the underlying structpb.Struct, for wire transmission.
func (b *Bag) Proto() *structpb.Struct {
	if b == nil {
		return nil
	}
	return b.s
}

func (b *Bag) field(key string) (*structpb.Value, bool) {
	if b == nil || b.s == nil {
		return nil, false
	}
	v, ok := b.s.Fields[key]
	return v, ok
}

func errMissing(key string) error {
	return status.Errorf(codes.InvalidArgument, "%s missing", key)
}

func errWrongType(key string) error {
	return status.Errorf(codes.InvalidArgument, "wrong type for %s", key)
}

// GetRequiredString returns the string value for key, or an
// invalid-argument error if it is absent or not a string.
func (b *Bag) GetRequiredString(key string) (string, error) {
	v, ok := b.field(key)
	if !ok {
		return "", errMissing(key)
	}
	s, ok := v.Kind.(*structpb.Value_StringValue)
	if !ok {
		return "", errWrongType(key)
	}
	return s.StringValue, nil
}

// GetRequiredFloat64 returns the numeric value for key, or an
// invalid-argument error if it is absent or not a number.
func (b *Bag) GetRequiredFloat64(key string) (float64, error) {
	v, ok := b.field(key)
	if !ok {
		return 0, errMissing(key)
	}
	n, ok := v.Kind.(*structpb.Value_NumberValue)
	if !ok {
		return 0, errWrongType(key)
	}
	return n.NumberValue, nil
}

// GetRequiredBool returns the boolean value for key, or an
// invalid-argument error if it is absent or not a bool.
func (b *Bag) GetRequiredBool(key string) (bool, error) {
	v, ok := b.field(key)
	if !ok {
		return false, errMissing(key)
	}
	bv, ok := v.Kind.(*structpb.Value_BoolValue)
	if !ok {
		return false, errWrongType(key)
	}
	return bv.BoolValue, nil
}

// GetString returns (value, true, nil) if key is present and a string,
// (_, false, nil) if key is absent, or (_, true, err) if key is present
// with the wrong type.
func (b *Bag) GetString(key string) (string, bool, error) {
	v, ok := b.field(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.Kind.(*structpb.Value_StringValue)
	if !ok {
		return "", true, errWrongType(key)
	}
	return s.StringValue, true, nil
}

// GetBool returns (value, true, nil) if key is present and a bool,
// (_, false, nil) if key is absent, or (_, true, err) if key is present
// with the wrong type.
func (b *Bag) GetBool(key string) (bool, bool, error) {
	v, ok := b.field(key)
	if !ok {
		return false, false, nil
	}
	bv, ok := v.Kind.(*structpb.Value_BoolValue)
	if !ok {
		return false, true, errWrongType(key)
	}
	return bv.BoolValue, true, nil
}

// GetFloat64 returns (value, true, nil) if key is present and numeric,
// (_, false, nil) if key is absent, or (_, true, err) if key is present
// with the wrong type.
func (b *Bag) GetFloat64(key string) (float64, bool, error) {
	v, ok := b.field(key)
	if !ok {
		return 0, false, nil
	}
	n, ok := v.Kind.(*structpb.Value_NumberValue)
	if !ok {
		return 0, true, errWrongType(key)
	}
	return n.NumberValue, true, nil
}

// GetEnum decodes a numeric option against a declared enum domain
// (e.g. the field selector author|summary|content|title), bounds
// checking the raw value against the domain map. Out-of-range values
// are invalid-argument.
func (b *Bag) GetEnum(key string, domain map[float64]string) (string, error) {
	n, err := b.GetRequiredFloat64(key)
	if err != nil {
		return "", err
	}
	s, ok := domain[n]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "wrong type for %s", key)
	}
	return s, nil
}

// Has reports whether key is present in the bag at all.
func (b *Bag) Has(key string) bool {
	_, ok := b.field(key)
	return ok
}

func (b *Bag) String() string {
	if b == nil || b.s == nil {
		return "{}"
	}
	return fmt.Sprintf("%v", b.s.AsMap())
}

// MarshalJSON encodes the bag via protojson, since structpb.Struct's
// oneof Kind field cannot round-trip through plain encoding/json.
// This is what lets a Bag travel inside a ProcessRequest across the
// hand-rolled JSON gRPC codec in internal/nodesvc.
func (b *Bag) MarshalJSON() ([]byte, error) {
	if b == nil || b.s == nil {
		return []byte("null"), nil
	}
	return protojson.Marshal(b.s)
}

// UnmarshalJSON decodes a bag previously written by MarshalJSON.
func (b *Bag) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		b.s = nil
		return nil
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return err
	}
	b.s = s
	return nil
}
