package resp

import (
	"bytes"
	"strconv"
)

// Parser incrementally decodes RESP values from a byte stream. It never
// blocks: Feed appends newly-arrived bytes, and Next either returns one
// decoded value or reports that more bytes are needed. The parser
// tolerates arbitrary fragmentation of the input — any prefix of a frame
// may arrive in any number of chunks.
type Parser struct {
	buf []byte
}

func NewParser() *Parser { return &Parser{} }

// Feed appends newly-received bytes to the parser's buffer.
func (p *Parser) Feed(b []byte) {
	p.buf = append(p.buf, b...)
}

// Next attempts to decode one Value from the buffered bytes. ok is false
// when the buffer does not yet hold a complete frame; the caller should
// Feed more data and call Next again. err is non-nil only for a malformed
// frame, which is fatal to the connection that owns this parser.
func (p *Parser) Next() (Value, bool, error) {
	v, n, err := parseValue(p.buf)
	if err == errIncomplete {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, err
	}
	p.buf = p.buf[n:]
	return v, true, nil
}

// Buffered reports how many unconsumed bytes remain.
func (p *Parser) Buffered() int { return len(p.buf) }

// findLine locates the CRLF-terminated line at the start of buf and
// returns the line content (without CRLF) and the number of bytes the
// line plus its terminator occupy.
func findLine(buf []byte) (line []byte, total int, err error) {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		return nil, 0, errIncomplete
	}
	if idx == 0 || buf[idx-1] != '\r' {
		return nil, 0, protocolErr("line not terminated by CRLF")
	}
	return buf[:idx-1], idx + 1, nil
}

func parseValue(buf []byte) (Value, int, error) {
	if len(buf) == 0 {
		return Value{}, 0, errIncomplete
	}
	tag := buf[0]
	line, lineLen, err := findLine(buf[1:])
	if err != nil {
		return Value{}, 0, err
	}
	consumed := 1 + lineLen
	switch tag {
	case '+':
		return Value{Kind: SimpleString, Str: string(line)}, consumed, nil
	case '-':
		return Value{Kind: Error, Str: string(line)}, consumed, nil
	case ':':
		i, perr := strconv.ParseInt(string(line), 10, 64)
		if perr != nil {
			return Value{}, 0, protocolErr("illegal integer: " + string(line))
		}
		return Value{Kind: Integer, Int: i}, consumed, nil
	case '$':
		return parseBulk(line, buf[consumed:], consumed)
	case '*':
		return parseArray(line, buf[consumed:], consumed)
	default:
		return Value{}, 0, protocolErr("unknown type byte '" + string(tag) + "'")
	}
}

func parseBulk(lenLine []byte, rest []byte, consumedSoFar int) (Value, int, error) {
	n, err := strconv.ParseInt(string(lenLine), 10, 64)
	if err != nil || n < -1 {
		return Value{}, 0, protocolErr("illegal bulk string length: " + string(lenLine))
	}
	if n == -1 {
		return Value{Kind: BulkString, Bulk: nil}, consumedSoFar, nil
	}
	need := int(n) + 2
	if len(rest) < need {
		return Value{}, 0, errIncomplete
	}
	if rest[n] != '\r' || rest[n+1] != '\n' {
		return Value{}, 0, protocolErr("bulk string missing trailing CRLF")
	}
	body := make([]byte, n)
	copy(body, rest[:n])
	return Value{Kind: BulkString, Bulk: body}, consumedSoFar + need, nil
}

func parseArray(lenLine []byte, rest []byte, consumedSoFar int) (Value, int, error) {
	n, err := strconv.ParseInt(string(lenLine), 10, 64)
	if err != nil || n < -1 {
		return Value{}, 0, protocolErr("illegal array length: " + string(lenLine))
	}
	if n == -1 {
		return Value{Kind: Array, Array: nil}, consumedSoFar, nil
	}
	elems := make([]Value, 0, n)
	offset := 0
	for i := int64(0); i < n; i++ {
		v, consumed, verr := parseValue(rest[offset:])
		if verr != nil {
			return Value{}, 0, verr
		}
		elems = append(elems, v)
		offset += consumed
	}
	return Value{Kind: Array, Array: elems}, consumedSoFar + offset, nil
}
