// Package opstream reads the line oriented operation
// stream and writes the per operation results.
//
// The stream starts with three integers: the number of
// nodes, the maximum number of children per node and
// the number of operations. They may share a line or
// each have their own. Then follows one node name per
// line, root first, and one operation record per line
// of the form
//
//	type name requester
//
// where type is 1 (lock), 2 (unlock) or 3 (upgrade).
// Blank lines are ignored.
package opstream

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hierlock/hierlock"
)

// ErrMalformedInput is matched by every SyntaxError.
var ErrMalformedInput = errors.New("malformed input")

// SyntaxError reports an unparsable line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed input: %s", e.Msg)
	}
	return fmt.Sprintf("malformed input at line %d: %s", e.Line, e.Msg)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrMalformedInput
}

// Header is the leading part of the stream.
type Header struct {
	Nodes       int
	MaxChildren int
	Operations  int
}

// Record is a single operation record.
type Record struct {
	Line  int
	Kind  hierlock.Kind
	Name  string
	Owner hierlock.Owner
}

type section int

const (
	sectionHeader section = iota
	sectionNames
	sectionRecords
)

// Reader parses a stream section by section. Header,
// Names and Next must be called in this order.
type Reader struct {
	sc      *bufio.Scanner
	line    int
	section section
	header  Header
	read    int
}

// MaxLineSize bounds the length of a single line.
const MaxLineSize = 1 << 20

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Reader{sc: sc}
}

// nextLine returns the next non blank line.
func (r *Reader) nextLine() (string, error) {
	for r.sc.Scan() {
		r.line++
		text := strings.TrimRight(r.sc.Text(), "\r")
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return "", errors.Wrapf(err, "read line %d", r.line+1)
	}
	return "", io.EOF
}

func (r *Reader) syntaxError(format string, args ...any) error {
	return &SyntaxError{Line: r.line, Msg: fmt.Sprintf(format, args...)}
}

// Header reads the three leading integers.
func (r *Reader) Header() (Header, error) {
	if r.section != sectionHeader {
		return r.header, nil
	}
	var values []int
	for len(values) < 3 {
		text, err := r.nextLine()
		if err == io.EOF {
			return Header{}, r.syntaxError("expected 3 header integers, got %d", len(values))
		}
		if err != nil {
			return Header{}, err
		}
		fields := strings.Fields(text)
		if len(values)+len(fields) > 3 {
			return Header{}, r.syntaxError("too many header fields")
		}
		for _, field := range fields {
			v, err := strconv.Atoi(field)
			if err != nil {
				return Header{}, r.syntaxError("header value %q is not an integer", field)
			}
			values = append(values, v)
		}
	}
	h := Header{Nodes: values[0], MaxChildren: values[1], Operations: values[2]}
	switch {
	case h.Nodes < 1:
		return Header{}, r.syntaxError("node count %d", h.Nodes)
	case h.MaxChildren < 0:
		return Header{}, r.syntaxError("children per node %d", h.MaxChildren)
	case h.Operations < 0:
		return Header{}, r.syntaxError("operation count %d", h.Operations)
	}
	r.header = h
	r.section = sectionNames
	return h, nil
}

// Names reads the node names announced by the header.
func (r *Reader) Names() ([]string, error) {
	if r.section == sectionHeader {
		if _, err := r.Header(); err != nil {
			return nil, err
		}
	}
	if r.section != sectionNames {
		return nil, errors.New("names already read")
	}
	names := make([]string, 0, r.header.Nodes)
	for len(names) < r.header.Nodes {
		text, err := r.nextLine()
		if err == io.EOF {
			return nil, r.syntaxError("expected %d names, got %d", r.header.Nodes, len(names))
		}
		if err != nil {
			return nil, err
		}
		names = append(names, strings.TrimSpace(text))
	}
	r.section = sectionRecords
	return names, nil
}

// Next returns the next operation record, or io.EOF
// once all announced records have been read.
func (r *Reader) Next() (Record, error) {
	if r.section != sectionRecords {
		return Record{}, errors.New("names not read yet")
	}
	if r.read >= r.header.Operations {
		return Record{}, io.EOF
	}
	text, err := r.nextLine()
	if err == io.EOF {
		return Record{}, r.syntaxError("expected %d operations, got %d", r.header.Operations, r.read)
	}
	if err != nil {
		return Record{}, err
	}
	rec, err := r.parseRecord(text)
	if err != nil {
		return Record{}, err
	}
	r.read++
	return rec, nil
}

func (r *Reader) parseRecord(text string) (Record, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return Record{}, r.syntaxError("expected \"type name requester\", got %q", text)
	}
	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, r.syntaxError("operation type %q is not an integer", fields[0])
	}
	kind, err := hierlock.ParseKind(code)
	if err != nil {
		return Record{}, r.syntaxError("%v", err)
	}
	owner, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, r.syntaxError("requester %q is not an integer", fields[2])
	}
	return Record{
		Line:  r.line,
		Kind:  kind,
		Name:  fields[1],
		Owner: hierlock.Owner(owner),
	}, nil
}
