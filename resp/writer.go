package resp

import (
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// CRLF terminates every line of the wire protocol.
const CRLF = "\r\n"

// EncodeCommand serializes a command as a RESP array of bulk strings:
// *N\r\n followed by $L\r\n<bytes>\r\n for each argument. This is the only
// shape the client ever writes to the wire.
func EncodeCommand(args ...[]byte) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("*")
	buf.WriteString(strconv.Itoa(len(args)))
	buf.WriteString(CRLF)
	for _, arg := range args {
		buf.WriteString("$")
		buf.WriteString(strconv.Itoa(len(arg)))
		buf.WriteString(CRLF)
		buf.Write(arg)
		buf.WriteString(CRLF)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// EncodeCommandStrings is a convenience wrapper for callers passing plain
// strings rather than []byte arguments.
func EncodeCommandStrings(args ...string) []byte {
	bs := make([][]byte, len(args))
	for i, a := range args {
		bs[i] = []byte(a)
	}
	return EncodeCommand(bs...)
}
