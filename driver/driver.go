// Package driver feeds an operation stream through a
// lock manager and writes one verdict per operation.
package driver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hierlock/hierlock"
	"github.com/hierlock/hierlock/config"
	"github.com/hierlock/hierlock/opstream"
	"github.com/hierlock/hierlock/treelock"
)

// ErrTooManyNodes is returned when the stream announces
// more nodes than tree.max_nodes allows.
var ErrTooManyNodes = errors.New("too many nodes")

// Summary counts the verdicts of a run per operation kind.
type Summary struct {
	Granted map[hierlock.Kind]int
	Denied  map[hierlock.Kind]int
}

func newSummary() Summary {
	return Summary{
		Granted: make(map[hierlock.Kind]int),
		Denied:  make(map[hierlock.Kind]int),
	}
}

func (s Summary) add(kind hierlock.Kind, granted bool) {
	if granted {
		s.Granted[kind]++
	} else {
		s.Denied[kind]++
	}
}

// Total returns the number of operations answered.
func (s Summary) Total() int {
	total := 0
	for _, kind := range hierlock.Kinds {
		total += s.Granted[kind] + s.Denied[kind]
	}
	return total
}

func (s Summary) String() string {
	var parts []string
	for _, kind := range hierlock.Kinds {
		parts = append(parts, fmt.Sprintf("%s %d/%d",
			kind, s.Granted[kind], s.Granted[kind]+s.Denied[kind]))
	}
	return strings.Join(parts, ", ")
}

// Run reads the stream from in, answers every operation
// and writes the verdicts to out in input order.
//
// If the stream is malformed or names an unknown node,
// the verdicts of the operations before it are still
// written and the error is returned.
func Run(
	ctx context.Context, in io.Reader, out io.Writer,
	cfg *config.Config, opts ...hierlock.Option,
) (Summary, error) {
	summary := newSummary()
	r := opstream.NewReader(in)
	header, err := r.Header()
	if err != nil {
		return summary, err
	}
	if limit := cfg.Tree.MaxNodes; limit > 0 && header.Nodes > limit {
		return summary, errors.Wrapf(ErrTooManyNodes, "%d nodes, limit %d", header.Nodes, limit)
	}
	names, err := r.Names()
	if err != nil {
		return summary, err
	}
	tree, err := treelock.Build(names, header.MaxChildren)
	if err != nil {
		return summary, errors.Wrap(err, "build tree")
	}
	d := hierlock.NewDispatcher(tree, opts...)

	w := opstream.NewWriter(out)
	if cfg.Driver.Workers > 1 {
		err = runPool(ctx, d, r, w, cfg.Driver.Workers, summary)
	} else {
		err = runSequential(ctx, d, r, w, summary)
	}
	if flushErr := w.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		return summary, err
	}
	if cfg.Driver.Verify {
		if err := d.Manager().Verify(); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// next reads the next record and resolves its node. It
// returns io.EOF at the end of the stream.
func next(ctx context.Context, d *hierlock.Dispatcher, r *opstream.Reader) (hierlock.Operation, error) {
	if err := ctx.Err(); err != nil {
		return hierlock.Operation{}, err
	}
	rec, err := r.Next()
	if err != nil {
		return hierlock.Operation{}, err
	}
	op, err := d.Resolve(rec.Kind, rec.Name, rec.Owner)
	if err != nil {
		return hierlock.Operation{}, errors.Wrapf(err, "line %d", rec.Line)
	}
	return op, nil
}

func runSequential(
	ctx context.Context, d *hierlock.Dispatcher,
	r *opstream.Reader, w *opstream.Writer, summary Summary,
) error {
	m := d.Manager()
	for {
		op, err := next(ctx, d, r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		granted, err := m.Apply(op)
		if err != nil {
			return err
		}
		summary.add(op.Kind, granted)
		if err := w.Write(granted); err != nil {
			return err
		}
	}
}

type pending struct {
	kind   hierlock.Kind
	result chan bool
}

// runPool applies up to workers operations at once. A
// single goroutine writes the verdicts, waiting for each
// operation in input order.
func runPool(
	ctx context.Context, d *hierlock.Dispatcher,
	r *opstream.Reader, w *opstream.Writer, workers int, summary Summary,
) error {
	m := d.Manager()
	queue := make(chan pending, workers*2)
	written := make(chan error, 1)
	go func() {
		var err error
		for p := range queue {
			granted := <-p.result
			if err != nil {
				continue
			}
			summary.add(p.kind, granted)
			err = w.Write(granted)
		}
		written <- err
	}()

	var g errgroup.Group
	g.SetLimit(workers)
	var readErr error
	for {
		op, err := next(ctx, d, r)
		if err != nil {
			if err != io.EOF {
				readErr = err
			}
			break
		}
		p := pending{kind: op.Kind, result: make(chan bool, 1)}
		queue <- p
		g.Go(func() error {
			granted, err := m.Apply(op)
			p.result <- granted
			return err
		})
	}
	applyErr := g.Wait()
	close(queue)
	writeErr := <-written

	switch {
	case readErr != nil:
		return readErr
	case applyErr != nil:
		return applyErr
	default:
		return writeErr
	}
}
