package reference

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Marshal encodes a reference with its variant tag so Unmarshal can restore
// the same concrete type.
func Marshal(ref Reference) ([]byte, error) {
	if err := Validate(ref); err != nil {
		return nil, err
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s", ref.Kind())
	}
	return json.Marshal(envelope{Kind: ref.Kind(), Data: data})
}

// Unmarshal decodes an envelope written by Marshal back into its variant.
func Unmarshal(data []byte) (Reference, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal reference envelope")
	}

	var (
		ref Reference
		err error
	)
	switch env.Kind {
	case KindSelfReferenceCall:
		ref, err = decodeVariant[SelfReferenceCall](env.Data)
	case KindMethodCall:
		ref, err = decodeVariant[MethodCall](env.Data)
	case KindFunctionCall:
		ref, err = decodeVariant[FunctionCall](env.Data)
	case KindConstructorCall:
		ref, err = decodeVariant[ConstructorCall](env.Data)
	case KindVariableReference:
		ref, err = decodeVariant[VariableReference](env.Data)
	case KindPropertyAccess:
		ref, err = decodeVariant[PropertyAccess](env.Data)
	case KindTypeReference:
		ref, err = decodeVariant[TypeReference](env.Data)
	case KindAssignment:
		ref, err = decodeVariant[Assignment](env.Data)
	default:
		return nil, errors.Wrapf(ErrInvalidReference, "unknown kind %q", env.Kind)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func decodeVariant[T Reference](data json.RawMessage) (Reference, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s", v.Kind())
	}
	return v, nil
}
