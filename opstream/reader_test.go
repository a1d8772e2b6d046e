package opstream

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hierlock/hierlock"
)

const sample = `7
2
3
World
Asia
Africa
China
India
SouthAfrica
Egypt
1 China 9
2 India 9
3 Asia 9
`

func TestReader(t *testing.T) {
	assert := assert.New(t)
	r := NewReader(strings.NewReader(sample))

	h, err := r.Header()
	require.NoError(t, err)
	assert.Equal(Header{Nodes: 7, MaxChildren: 2, Operations: 3}, h)

	names, err := r.Names()
	require.NoError(t, err)
	assert.Equal([]string{
		"World", "Asia", "Africa", "China", "India", "SouthAfrica", "Egypt",
	}, names)

	var records []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		records = append(records, rec)
	}
	assert.Equal([]Record{
		{Line: 11, Kind: hierlock.KindLock, Name: "China", Owner: 9},
		{Line: 12, Kind: hierlock.KindUnlock, Name: "India", Owner: 9},
		{Line: 13, Kind: hierlock.KindUpgrade, Name: "Asia", Owner: 9},
	}, records)

	// EOF is sticky.
	_, err = r.Next()
	assert.Equal(io.EOF, err)
}

func TestReaderHeaderOnOneLine(t *testing.T) {
	assert := assert.New(t)
	r := NewReader(strings.NewReader("3 2 1\r\nA\r\nB\r\nC\r\n\r\n1 B 5\r\n"))

	names, err := r.Names()
	require.NoError(t, err)
	assert.Equal([]string{"A", "B", "C"}, names)

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(Record{Line: 6, Kind: hierlock.KindLock, Name: "B", Owner: 5}, rec)
	_, err = r.Next()
	assert.Equal(io.EOF, err)
}

func TestReaderIgnoresTrailingInput(t *testing.T) {
	r := NewReader(strings.NewReader("1\n0\n1\nA\n1 A 1\n1 A 2\n"))
	_, err := r.Names()
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderMalformed(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		line  int
		msg   string
	}{
		{"empty", "", 0, "expected 3 header integers, got 0"},
		{"short header", "3\n2\n", 2, "expected 3 header integers, got 2"},
		{"header not int", "3\nx\n1\n", 2, `header value "x" is not an integer`},
		{"header too long", "3 2 1 0\n", 1, "too many header fields"},
		{"no nodes", "0 2 1\n", 1, "node count 0"},
		{"negative fanout", "1 -1 1\n", 1, "children per node -1"},
		{"negative operations", "1 1 -1\n", 1, "operation count -1"},
		{"missing names", "3 2 0\nA\nB\n", 3, "expected 3 names, got 2"},
		{"missing records", "1 0 2\nA\n1 A 1\n", 3, "expected 2 operations, got 1"},
		{"short record", "1 0 1\nA\n1 A\n", 3, `expected "type name requester", got "1 A"`},
		{"type not int", "1 0 1\nA\nx A 1\n", 3, `operation type "x" is not an integer`},
		{"unknown type", "1 0 1\nA\n4 A 1\n", 3, "type 4: unknown operation"},
		{"requester not int", "1 0 1\nA\n1 A y\n", 3, `requester "y" is not an integer`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			r := NewReader(strings.NewReader(tc.input))
			var err error
			if _, err = r.Names(); err == nil {
				for err == nil {
					_, err = r.Next()
				}
			}
			require.Error(t, err)
			assert.True(errors.Is(err, ErrMalformedInput), err.Error())

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(tc.line, syntaxErr.Line)
			assert.Equal(tc.msg, syntaxErr.Msg)
		})
	}
}

func TestReaderOrder(t *testing.T) {
	r := NewReader(strings.NewReader(sample))
	_, err := r.Next()
	assert.Error(t, err)

	_, err = r.Names()
	require.NoError(t, err)
	_, err = r.Names()
	assert.Error(t, err)
}

func TestWriter(t *testing.T) {
	assert := assert.New(t)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.NoError(w.Write(true))
	assert.NoError(w.Write(false))
	assert.Equal("", buf.String())
	assert.NoError(w.Flush())
	assert.Equal("true\nfalse\n", buf.String())
}
