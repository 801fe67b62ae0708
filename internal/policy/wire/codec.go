// Package wire implements the line-oriented policy delegation protocol the
// MTA speaks: a request frame is a run of name=value lines terminated by a
// blank line, and the response frame has the same shape. The package owns
// framing and the translation between typed verdicts and the open-ended
// wire mapping; nothing else in the repo touches raw frames.
package wire

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"relaypolicyd/internal/policy/models"
)

// ErrIncompleteFrame reports a connection closed before the blank line that
// terminates a frame. It is a connection condition, not a parse error; the
// caller decides to drop the connection and must not attempt a response.
var ErrIncompleteFrame = errors.New("incomplete frame")

// ReadFrame accumulates lines from r until the blank terminator line and
// returns the raw frame text. A clean close between frames surfaces as
// io.EOF; a close mid-frame surfaces as ErrIncompleteFrame.
func ReadFrame(r *bufio.Reader) (string, error) {
	var frame strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if frame.Len() == 0 && line == "" {
					return "", io.EOF
				}
				return "", ErrIncompleteFrame
			}
			return "", err
		}
		if strings.TrimSpace(line) == "" {
			return frame.String(), nil
		}
		frame.WriteString(line)
	}
}

// Parse converts the accumulated text of one request frame into a mapping.
// Lines without '=' are ignored, the split is on the first '=' only so
// values may themselves contain '=', whitespace around each line is
// trimmed, and the last duplicate name wins.
func Parse(raw string) map[string]string {
	req := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		req[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return req
}

// Field is one name=value pair of a response frame.
type Field struct {
	Name  string
	Value string
}

// Response is a response frame under construction. Field order is preserved
// so serialized frames are stable; Set keeps the first-write position when
// a name is overwritten.
type Response struct {
	fields []Field
}

// Set adds or overwrites a field.
func (r *Response) Set(name, value string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns a field value and whether it is present.
func (r *Response) Get(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Serialize emits the frame: one name=value line per field in insertion
// order, then the blank terminator line. Values must not contain line
// breaks; that is the caller's contract and is not re-checked here.
func (r *Response) Serialize() string {
	var b strings.Builder
	for _, f := range r.fields {
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

// FromVerdict translates a typed verdict into the wire mapping. This is the
// only place verdicts and frames meet: OK carries smtp_bind_address, the
// failure actions carry reason.
func FromVerdict(v models.Verdict) *Response {
	resp := &Response{}
	resp.Set("action", string(v.Action))
	if v.Action == models.ActionOK {
		resp.Set("smtp_bind_address", v.BindAddress)
	} else {
		resp.Set("reason", v.Reason)
	}
	return resp
}
