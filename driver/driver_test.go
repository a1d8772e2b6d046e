package driver

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hierlock/hierlock"
	"github.com/hierlock/hierlock/config"
	"github.com/hierlock/hierlock/opstream"
)

func run(t *testing.T, input string, workers int) (string, Summary, error) {
	cfg := config.Default()
	cfg.Driver.Workers = workers
	cfg.Driver.Verify = true
	var out bytes.Buffer
	summary, err := Run(context.Background(), strings.NewReader(input), &out, cfg)
	return out.String(), summary, err
}

const world = `7
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

func TestRunSample(t *testing.T) {
	assert := assert.New(t)
	out, summary, err := run(t, world, 1)
	require.NoError(t, err)
	assert.Equal("true\nfalse\ntrue\n", out)
	assert.Equal(3, summary.Total())
	assert.Equal(1, summary.Granted[hierlock.KindLock])
	assert.Equal(1, summary.Denied[hierlock.KindUnlock])
	assert.Equal(1, summary.Granted[hierlock.KindUpgrade])
	assert.Equal("lock 1/1, unlock 0/1, upgrade 1/1", summary.String())
}

func TestRunScenarios(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		want  string
	}{
		{
			"exclusion",
			"3\n2\n5\nA\nB\nC\n1 B 5\n1 A 9\n2 B 5\n1 A 9\n1 C 1\n",
			"true\nfalse\ntrue\ntrue\nfalse\n",
		},
		{
			"upgrade",
			"3 2 4\nA\nB\nC\n1 B 1\n1 C 1\n3 A 1\n1 B 1\n",
			"true\ntrue\ntrue\nfalse\n",
		},
		{
			"upgrade mixed owners",
			"3 2 5\nA\nB\nC\n1 B 1\n1 C 2\n3 A 1\n2 B 1\n2 C 2\n",
			"true\ntrue\nfalse\ntrue\ntrue\n",
		},
		{
			"no operations",
			"1 0 0\nA\n",
			"",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := run(t, tc.input, 1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

// leaves builds a stream whose verdicts do not depend on
// the order of application: every leaf is locked once
// and the root, which nobody holds, is unlocked between
// them.
func leaves(levels int) (string, string) {
	n := 1<<levels - 1
	first := n / 2
	count := (n - first) * 2

	var in, want strings.Builder
	fmt.Fprintf(&in, "%d 2 %d\n", n, count)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&in, "n%d\n", i)
	}
	for i := first; i < n; i++ {
		fmt.Fprintf(&in, "1 n%d %d\n", i, i)
		fmt.Fprintf(&in, "2 n0 1\n")
		want.WriteString("true\nfalse\n")
	}
	return in.String(), want.String()
}

func TestRunPoolOrder(t *testing.T) {
	assert := assert.New(t)
	in, want := leaves(8)
	for _, workers := range []int{1, 2, 8, 64} {
		out, summary, err := run(t, in, workers)
		require.NoError(t, err)
		assert.Equal(want, out, "workers %d", workers)
		assert.Equal(128, summary.Granted[hierlock.KindLock])
		assert.Equal(128, summary.Denied[hierlock.KindUnlock])
	}
}

func TestRunNotFound(t *testing.T) {
	input := "3 2 4\nA\nB\nC\n1 B 1\n1 C 2\n1 Z 1\n1 A 1\n"
	for _, workers := range []int{1, 3} {
		assert := assert.New(t)
		out, summary, err := run(t, input, workers)
		require.Error(t, err)
		assert.True(errors.Is(err, hierlock.ErrNotFound), err.Error())
		assert.Contains(err.Error(), "line 7")
		assert.Equal("true\ntrue\n", out, "workers %d", workers)
		assert.Equal(2, summary.Total())
	}
}

func TestRunMalformed(t *testing.T) {
	input := "3 2 3\nA\nB\nC\n1 B 1\n9 C 2\n1 A 1\n"
	for _, workers := range []int{1, 3} {
		out, _, err := run(t, input, workers)
		require.Error(t, err)
		assert.True(t, errors.Is(err, opstream.ErrMalformedInput), err.Error())
		assert.Equal(t, "true\n", out, "workers %d", workers)
	}
}

func TestRunBadTree(t *testing.T) {
	_, _, err := run(t, "2 1 0\nA\nA\n", 1)
	assert.Error(t, err)

	_, _, err = run(t, "2 0 0\nA\nB\n", 1)
	assert.Error(t, err)
}

func TestRunTooManyNodes(t *testing.T) {
	cfg := config.Default()
	cfg.Tree.MaxNodes = 2
	var out bytes.Buffer
	_, err := Run(context.Background(), strings.NewReader("3 2 0\nA\nB\nC\n"), &out, cfg)
	assert.True(t, errors.Is(err, ErrTooManyNodes))
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{1, 2} {
		cfg := config.Default()
		cfg.Driver.Workers = workers
		var out bytes.Buffer
		_, err := Run(ctx, strings.NewReader(world), &out, cfg)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Empty(t, out.String())
	}
}
