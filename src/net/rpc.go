package net

// RPCResponse captures both a response and a potential error. Response may be
// nil for requests that expect no reply.
type RPCResponse struct {
	Response *Message
	Error    error
}

// RPC encapsulates an incoming Message and provides a response mechanism.
type RPC struct {
	Command  *Message
	RespChan chan<- RPCResponse
}

// Respond is used to respond with a response, error or both.
func (r *RPC) Respond(resp *Message, err error) {
	r.RespChan <- RPCResponse{resp, err}
}
