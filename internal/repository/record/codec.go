package record

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// envelope frames every stored value as the CBOR array [schema, body].
type envelope struct {
	_      struct{} `cbor:",toarray"`
	Schema uint64
	Body   cbor.RawMessage
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("record: cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		IndefLength:       cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("record: cbor dec mode: %v", err))
	}
}

// Encode serializes v under the given schema version.
// Encoding is deterministic: equal values always produce equal bytes.
func Encode[T any](schema uint64, v T) ([]byte, error) {
	body, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record body: %w", err)
	}
	data, err := encMode.Marshal(envelope{Schema: schema, Body: body})
	if err != nil {
		return nil, fmt.Errorf("encode record envelope: %w", err)
	}
	return data, nil
}

// Decode parses data written by Encode with the same schema.
// Any mismatch is reported as storage corruption.
func Decode[T any](schema uint64, data []byte) (T, error) {
	var zero T

	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return zero, fmt.Errorf("%w: envelope: %w", domain.ErrStorageCorruption, err)
	}
	if env.Schema != schema {
		return zero, fmt.Errorf("%w: schema version %d, want %d",
			domain.ErrStorageCorruption, env.Schema, schema)
	}

	var v T
	if err := decMode.Unmarshal(env.Body, &v); err != nil {
		return zero, fmt.Errorf("%w: body: %w", domain.ErrStorageCorruption, err)
	}
	return v, nil
}
