package codec

import (
	"httprpc/message"
	"httprpc/rpcerr"
	"reflect"
)

// CallCodec serializes single values and whole call descriptors with one Codec.
type CallCodec struct {
	codec Codec
}

// NewCallCodec wraps c.
func NewCallCodec(c Codec) *CallCodec {
	return &CallCodec{codec: c}
}

// ContentType of the text produced by this codec.
func (cc *CallCodec) ContentType() string {
	return cc.codec.ContentType()
}

// Serialize renders v as text.
func (cc *CallCodec) Serialize(v any) (string, error) {
	data, err := cc.codec.Encode(v)
	if err != nil {
		return "", rpcerr.Decoding(err, "encode %T", v)
	}
	return string(data), nil
}

// DeserializeInto decodes text into the value v points to.
func (cc *CallCodec) DeserializeInto(text string, v any) error {
	if err := cc.codec.Decode([]byte(text), v); err != nil {
		return rpcerr.Decoding(err, "decode %T", v)
	}
	return nil
}

// DeserializeType decodes text into a fresh value of typ, for types known only at
// run time.
func (cc *CallCodec) DeserializeType(text string, typ reflect.Type) (any, error) {
	ptr := reflect.New(typ)
	if err := cc.codec.Decode([]byte(text), ptr.Interface()); err != nil {
		return nil, rpcerr.Decoding(err, "decode %s", typ)
	}
	return ptr.Elem().Interface(), nil
}

// CreateCall pairs args positionally with m's parameter names, serializes each
// argument independently and then the whole descriptor.
func (cc *CallCodec) CreateCall(m message.Method, args ...any) ([]byte, error) {
	if len(args) != m.Arity() {
		return nil, rpcerr.Application(rpcerr.ErrArityMismatch,
			"method %q declares %d parameters, got %d arguments", m.Name, m.Arity(), len(args))
	}

	call := message.CallDescriptor{
		MethodName: m.Name,
		Parameters: make(map[string]string, len(args)),
	}
	for i, arg := range args {
		text, err := cc.Serialize(arg)
		if err != nil {
			return nil, rpcerr.Decoding(err, "parameter %q", m.Params[i])
		}
		call.Parameters[m.Params[i]] = text
	}

	data, err := cc.codec.Encode(&call)
	if err != nil {
		return nil, rpcerr.Decoding(err, "encode call %q", m.Name)
	}
	return data, nil
}

// ParseCall decodes a descriptor produced by CreateCall.
func (cc *CallCodec) ParseCall(data []byte) (*message.CallDescriptor, error) {
	var call message.CallDescriptor
	if err := cc.codec.Decode(data, &call); err != nil {
		return nil, rpcerr.Decoding(err, "decode call descriptor")
	}
	if call.MethodName == "" {
		return nil, rpcerr.Decoding(nil, "call descriptor without method name")
	}
	return &call, nil
}

// Deserialize decodes text into a T.
func Deserialize[T any](cc *CallCodec, text string) (T, error) {
	var v T
	if err := cc.DeserializeInto(text, &v); err != nil {
		return v, err
	}
	return v, nil
}

// Serialize renders v with the Default codec.
func Serialize(v any) (string, error) {
	return Default.Serialize(v)
}

// DeserializeAs decodes text into a T with the Default codec.
func DeserializeAs[T any](text string) (T, error) {
	return Deserialize[T](Default, text)
}
