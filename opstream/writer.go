package opstream

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// Writer writes one boolean per line.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Write(granted bool) error {
	if _, err := w.w.WriteString(strconv.FormatBool(granted)); err != nil {
		return errors.Wrap(err, "write result")
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write result")
	}
	return nil
}

func (w *Writer) Flush() error {
	return errors.Wrap(w.w.Flush(), "flush results")
}
