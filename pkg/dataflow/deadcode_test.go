package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taro-lang/taro/pkg/cfg"
	"github.com/taro-lang/taro/pkg/diag"
)

func TestAnalyzeDeadCodeNone(t *testing.T) {
	f := newFx()
	fn := f.fn("f", f.block(f.decl("x", f.lit(1)), f.ret(f.ident("x"))))

	g, err := cfg.BuildFunction(fn)
	require.NoError(t, err)

	collector := diag.NewCollector(0)
	regions, err := AnalyzeDeadCode(g, collector)
	require.NoError(t, err)
	assert.Empty(t, regions)
	assert.Equal(t, 0, collector.Count())
}

func TestAnalyzeDeadCodeAfterReturn(t *testing.T) {
	f := newFx()
	fn := f.fn("f", f.block(
		f.ret(nil),
		f.assign(f.ident("x"), f.lit(1)),
		f.assign(f.ident("x"), f.lit(2)),
	))

	g, err := cfg.BuildFunction(fn)
	require.NoError(t, err)

	collector := diag.NewCollector(0)
	regions, err := AnalyzeDeadCode(g, collector)
	require.NoError(t, err)

	// Two dead statements form one maximal region with one warning.
	require.Len(t, regions, 1)
	assert.Equal(t, DeadAfterReturn, regions[0].Kind)
	assert.Len(t, regions[0].Nodes, 2)
	assert.Equal(t, regions[0].Nodes[0], regions[0].First)

	require.Equal(t, 1, collector.Count())
	d := collector.All()[0]
	assert.Equal(t, diag.SeverityWarning, d.Severity)
	assert.Equal(t, diag.CategoryDeadCode, d.Category)
	assert.Equal(t, "unreachable code after return", d.Message)
}

func TestAnalyzeDeadCodeBreakRegion(t *testing.T) {
	f := newFx()
	fn := f.fn("f", f.block(
		f.loop(f.ident("go_on"), nil, f.block(
			f.brk(),
			f.exprStmt(f.lit(9)),
		)),
		f.ret(nil),
	))

	g, err := cfg.BuildFunction(fn)
	require.NoError(t, err)

	regions, err := AnalyzeDeadCode(g, nil)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, DeadAfterBreak, regions[0].Kind)
}

func TestAnalyzeDeadCodeTwoRegions(t *testing.T) {
	f := newFx()
	fn := f.fn("f", f.block(
		f.loop(f.ident("go_on"), nil, f.block(
			f.brk(),
			f.exprStmt(f.lit(9)),
		)),
		f.ret(nil),
		f.exprStmt(f.lit(1)),
	))

	g, err := cfg.BuildFunction(fn)
	require.NoError(t, err)

	collector := diag.NewCollector(0)
	regions, err := AnalyzeDeadCode(g, collector)
	require.NoError(t, err)

	require.Len(t, regions, 2)
	kinds := []DeadKind{regions[0].Kind, regions[1].Kind}
	assert.Contains(t, kinds, DeadAfterBreak)
	assert.Contains(t, kinds, DeadAfterReturn)
	assert.Equal(t, 2, collector.Count())
}

func TestAnalyzeDeadCodeBeforeReachability(t *testing.T) {
	g := cfg.NewGraph("f")
	g.Finalize()

	_, err := AnalyzeDeadCode(g, nil)
	assert.Error(t, err)
}
