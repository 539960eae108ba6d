package rpc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Symbol is a bare, unquoted atom: an operation name, a tag like "call" or
// "event", or the literals t/nil.
type Symbol string

// List is an ordered S-expression form: "(a b c)".
type List []any

// Encode renders v as its S-expression text. Supported Go types: string,
// Symbol, bool, int, int64, float64, List, and nil.
func Encode(v any) string {
	var b strings.Builder
	encodeInto(&b, v)
	return b.String()
}

func encodeInto(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("nil")
	case bool:
		if val {
			b.WriteString("t")
		} else {
			b.WriteString("nil")
		}
	case Symbol:
		b.WriteString(string(val))
	case string:
		encodeString(b, val)
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case List:
		b.WriteByte('(')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(' ')
			}
			encodeInto(b, item)
		}
		b.WriteByte(')')
	case []string:
		l := make(List, len(val))
		for i, s := range val {
			l[i] = s
		}
		encodeInto(b, l)
	default:
		// Fall back to a quoted Go-syntax string rather than panicking on an
		// unanticipated type; callers control every value actually encoded.
		encodeString(b, fmt.Sprintf("%v", val))
	}
}

func encodeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// Decoder reads balanced S-expression forms from a byte stream. It does
// not depend on newline framing: a form's own parenthesis nesting and
// quoted strings (which may themselves contain literal newlines) delimit
// it, matching how an Emacs process filter accumulates forms with
// read-from-string.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for reading top-level forms one at a time.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next reads and parses the next top-level form. It returns io.EOF once
// the underlying stream is exhausted between forms.
func (d *Decoder) Next() (any, error) {
	if err := d.skipSpace(); err != nil {
		return nil, err
	}
	return d.readValue()
}

func (d *Decoder) skipSpace() error {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if !isSpace(b) {
			return d.r.UnreadByte()
		}
	}
}

func (d *Decoder) readValue() (any, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch {
	case b == '(':
		return d.readList()
	case b == '"':
		return d.readString()
	default:
		if err := d.r.UnreadByte(); err != nil {
			return nil, err
		}
		return d.readAtom()
	}
}

func (d *Decoder) readList() (any, error) {
	var list List
	for {
		if err := d.skipSpace(); err != nil {
			return nil, fmt.Errorf("rpc: unterminated list: %w", err)
		}
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("rpc: unterminated list: %w", err)
		}
		if b == ')' {
			return list, nil
		}
		if err := d.r.UnreadByte(); err != nil {
			return nil, err
		}
		v, err := d.readValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
}

func (d *Decoder) readString() (any, error) {
	var sb strings.Builder
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("rpc: unterminated string: %w", err)
		}
		if b == '"' {
			return sb.String(), nil
		}
		if b == '\\' {
			esc, err := d.r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("rpc: unterminated escape: %w", err)
			}
			sb.WriteByte(esc)
			continue
		}
		sb.WriteByte(b)
	}
}

func (d *Decoder) readAtom() (any, error) {
	var sb strings.Builder
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				break
			}
			return nil, err
		}
		if isSpace(b) || b == '(' || b == ')' {
			_ = d.r.UnreadByte()
			break
		}
		sb.WriteByte(b)
	}

	atom := sb.String()
	switch atom {
	case "t":
		return true, nil
	case "nil":
		return false, nil
	}
	if n, err := strconv.ParseInt(atom, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(atom, 64); err == nil {
		return f, nil
	}
	return Symbol(atom), nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// AsList type-asserts v as a List, for decoding a call's argument vector.
func AsList(v any) (List, bool) {
	l, ok := v.(List)
	return l, ok
}

// AsString type-asserts v as a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsSymbol type-asserts v as a Symbol.
func AsSymbol(v any) (Symbol, bool) {
	s, ok := v.(Symbol)
	return s, ok
}
