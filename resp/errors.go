package resp

import "errors"

// ProtocolError reports a malformed RESP frame. It is always fatal to the
// connection that produced it — see the connection's failure model.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return "resp: protocol error: " + e.Msg }

func protocolErr(msg string) error { return &ProtocolError{Msg: msg} }

// errIncomplete signals "need more bytes" between parseValue calls. It
// never escapes the package; Parser.Next translates it into ok == false.
var errIncomplete = errors.New("resp: incomplete frame")
