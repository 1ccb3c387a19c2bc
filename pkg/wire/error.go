package wire

// ProtocolError is returned to a player whose request could not be applied.
type ProtocolError struct {
	Code    string
	Message string
}

func (e ProtocolError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "protocol error"
}

// Payload converts the error into its wire form.
func (e ProtocolError) Payload() ErrorPayload {
	return ErrorPayload{Code: e.Code, Message: e.Error()}
}
