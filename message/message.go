// Package message defines the call descriptor exchanged between client and server
// and the method identity both sides agree on.
//
// A CallDescriptor is the "envelope" for every RPC call. The codec layer serializes it
// and the transport POSTs it to the endpoint of the target service.
package message

// CallDescriptor carries a single RPC invocation in transit.
//
//   - MethodName is the unqualified method name, e.g. "add".
//   - Parameters maps each declared parameter name to its independently serialized value.
//     Lookup on the receiving side is by name, so map order never matters.
type CallDescriptor struct {
	MethodName string            `json:"methodName"`
	Parameters map[string]string `json:"parameters"`
}

// Method identifies a remote method: its name and its parameter names in declaration
// order. The client uses it to pair arguments positionally with names, the server uses
// the same value to register the handler that serves it.
type Method struct {
	Name   string
	Params []string
}

// NewMethod returns the identity of method name with the given parameter names.
func NewMethod(name string, params ...string) Method {
	return Method{Name: name, Params: params}
}

// Arity is the number of declared parameters.
func (m Method) Arity() int {
	return len(m.Params)
}

func (m Method) String() string {
	return m.Name
}
