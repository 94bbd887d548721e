// Package codec turns typed values into transportable text and back, and builds the
// call descriptors the client POSTs to the server.
package codec

// Codec is the serialization collaborator: any format able to round-trip the object
// graphs reachable from a service method's parameter and return types.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	ContentType() string
}

// Default is the JSON call codec used when a component is not given one.
var Default = NewCallCodec(&JSONCodec{})
