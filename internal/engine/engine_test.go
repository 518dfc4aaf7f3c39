package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/eqfields/internal/eqhash"
	"github.com/phobologic/eqfields/internal/lang"
	"github.com/phobologic/eqfields/internal/model"
	"github.com/phobologic/eqfields/internal/parse"
)

func program(t *testing.T, sources map[string]string) *parse.Program {
	t.Helper()
	q, err := lang.Java.GetClassQuery()
	require.NoError(t, err)
	parser := lang.Java.NewParser()

	prog := parse.NewProgram()
	for path, src := range sources {
		f, err := parse.ParseFile(context.Background(), parser, q, []byte(src), path)
		require.NoError(t, err)
		prog.Add(f)
	}
	return prog
}

const sample = `class %s {
	private int a;
	private int b;
	public boolean equals(Object o) { return a == ((%s) o).a; }
	public int hashCode() { return 0; }
}`

func TestRunSortedFindings(t *testing.T) {
	t.Parallel()
	prog := program(t, map[string]string{
		"b/B.java": fmt.Sprintf(sample, "B", "B"),
		"a/A.java": fmt.Sprintf(sample, "A", "A"),
	})

	e := New(prog, eqhash.New(prog), WithWorkers(3))
	got, err := e.Run(context.Background())
	require.NoError(t, err)

	var summary []string
	for _, f := range got {
		summary = append(summary, fmt.Sprintf("%s:%d %s %s", f.Pos.File, f.Pos.Line, f.Field, f.Method))
	}
	assert.Equal(t, []string{
		"a/A.java:2 a hashCode",
		"a/A.java:3 b equals",
		"a/A.java:3 b hashCode",
		"b/B.java:2 a hashCode",
		"b/B.java:3 b equals",
		"b/B.java:3 b hashCode",
	}, summary)
}

func TestRunRepeatable(t *testing.T) {
	t.Parallel()
	sources := make(map[string]string)
	for i := range 20 {
		name := fmt.Sprintf("C%d", i)
		sources[name+".java"] = fmt.Sprintf(sample, name, name)
	}
	prog := program(t, sources)
	e := New(prog, eqhash.New(prog))

	first, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 60)

	second, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	prog := program(t, map[string]string{"A.java": fmt.Sprintf(sample, "A", "A")})
	e := New(prog, eqhash.New(prog))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmptyProgram(t *testing.T) {
	t.Parallel()
	prog := parse.NewProgram()
	got, err := New(prog, eqhash.New(prog), WithWorkers(0)).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.IsType(t, []model.Finding{}, got)
}
