package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Default protocol limits.
const (
	// DefaultMaxArrayLen limits the number of elements in a RESP array.
	DefaultMaxArrayLen = 1024

	// DefaultMaxBulkLen limits the size of a single bulk string.
	DefaultMaxBulkLen = 1 << 20

	// DefaultMaxInlineLen limits inline command line length.
	DefaultMaxInlineLen = 4 * 1024

	// headerLen bounds "*<n>" and "$<n>" header lines.
	headerLen = 64
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// Limits bounds what a Reader accepts from a client.
type Limits struct {
	MaxArrayLen  int
	MaxBulkLen   int
	MaxInlineLen int
}

// DefaultLimits returns the default protocol limits.
func DefaultLimits() Limits {
	return Limits{
		MaxArrayLen:  DefaultMaxArrayLen,
		MaxBulkLen:   DefaultMaxBulkLen,
		MaxInlineLen: DefaultMaxInlineLen,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxArrayLen <= 0 {
		l.MaxArrayLen = d.MaxArrayLen
	}
	if l.MaxBulkLen <= 0 {
		l.MaxBulkLen = d.MaxBulkLen
	}
	if l.MaxInlineLen <= 0 {
		l.MaxInlineLen = d.MaxInlineLen
	}
	return l
}

// Reader decodes RESP2 commands: arrays of bulk strings, or inline commands.
type Reader struct {
	br     *bufio.Reader
	limits Limits
}

// NewReader wraps r. Zero fields in limits fall back to the defaults.
func NewReader(r io.Reader, limits Limits) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{br: br, limits: limits.withDefaults()}
}

// Peek blocks until at least one byte is buffered.
func (r *Reader) Peek() error {
	_, err := r.br.Peek(1)
	return err
}

// ReadCommand reads one command. An empty inline line or an empty array
// yields a nil slice and no error.
func (r *Reader) ReadCommand() ([][]byte, error) {
	b, err := r.br.Peek(1)
	if err != nil {
		return nil, err
	}

	if b[0] == '*' {
		return r.readArray()
	}

	line, err := r.readLine(r.limits.MaxInlineLen)
	if err != nil {
		return nil, err
	}
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, nil
	}
	if len(parts) > r.limits.MaxArrayLen {
		return nil, fmt.Errorf("%w: %d inline arguments exceed limit %d", ErrLimitExceeded, len(parts), r.limits.MaxArrayLen)
	}
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out, nil
}

func (r *Reader) readArray() ([][]byte, error) {
	line, err := r.readLine(headerLen)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid array length", ErrProtocol)
	}
	if n <= 0 {
		return nil, nil
	}
	if n > r.limits.MaxArrayLen {
		return nil, fmt.Errorf("%w: array length %d exceeds limit %d", ErrLimitExceeded, n, r.limits.MaxArrayLen)
	}

	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		arg, err := r.readBulk()
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

func (r *Reader) readBulk() ([]byte, error) {
	line, err := r.readLine(headerLen)
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[0] != '$' {
		return nil, fmt.Errorf("%w: expected bulk string", ErrProtocol)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < -1 {
		return nil, fmt.Errorf("%w: invalid bulk length", ErrProtocol)
	}
	if n == -1 {
		return nil, nil
	}
	if n > r.limits.MaxBulkLen {
		return nil, fmt.Errorf("%w: bulk length %d exceeds limit %d", ErrLimitExceeded, n, r.limits.MaxBulkLen)
	}

	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return nil, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
	}
	return buf[:n], nil
}

func (r *Reader) readLine(maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLen+2 {
			return "", fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return "", err
	}

	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return "", fmt.Errorf("%w: missing CRLF", ErrProtocol)
	}
	return string(buf[:len(buf)-2]), nil
}

// Replies.

func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + s + "\r\n")
	return err
}

// WriteError writes an error reply. CR and LF in s are replaced by spaces.
func WriteError(w *bufio.Writer, s string) error {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	_, err := w.WriteString("-" + s + "\r\n")
	return err
}

func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

func WriteNullArray(w *bufio.Writer) error {
	_, err := w.WriteString("*-1\r\n")
	return err
}

func WriteBulk(w *bufio.Writer, b []byte) error {
	if b == nil {
		return WriteNullBulk(w)
	}
	if _, err := w.WriteString("$" + strconv.Itoa(len(b)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteBulkString(w *bufio.Writer, s string) error {
	if _, err := w.WriteString("$" + strconv.Itoa(len(s)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteArrayHeader(w *bufio.Writer, n int) error {
	_, err := w.WriteString("*" + strconv.Itoa(n) + "\r\n")
	return err
}

// WriteStringArray writes items as an array of bulk strings.
func WriteStringArray(w *bufio.Writer, items []string) error {
	if err := WriteArrayHeader(w, len(items)); err != nil {
		return err
	}
	for _, s := range items {
		if err := WriteBulkString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func normalizeCommandName(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}
