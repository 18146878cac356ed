package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoolAllocate(t *testing.T) {
	p := NewPool[int]()
	require.Equal(t, 0, p.Allocated())

	const n = poolPageSize*2 + 3
	ptrs := make([]*int, n)
	for i := 0; i < n; i++ {
		ptrs[i] = p.Allocate()
		*ptrs[i] = i
	}
	require.Equal(t, n, p.Allocated())
	for i := 0; i < n; i++ {
		require.Equal(t, i, *p.View(i))
	}
}

func TestPoolReset(t *testing.T) {
	p := NewPool[int]()
	a := p.Allocate()
	*a = 42
	p.Reset()
	require.Equal(t, 0, p.Allocated())
	b := p.Allocate()
	require.Equal(t, 0, *b)
}

func TestBuilderEmitAllocatesValue(t *testing.T) {
	b := NewBuilder()
	var body []*Instr
	v := b.ConstI32(&body, 7)
	require.True(t, v.Valid())
	require.Equal(t, TypeI32, v.Type())
	require.Len(t, body, 1)
	require.Equal(t, OpConstI32, body[0].Op)
	require.Equal(t, v, body[0].Result())
}

func TestBuilderIfProducesNestedBodies(t *testing.T) {
	b := NewBuilder()
	var body []*Instr
	cond := b.ConstBool(&body, true)
	then, els := b.If(&body, cond)
	b.ExprStmt(then, b.ConstI32(then, 1))
	b.ExprStmt(els, b.ConstI32(els, 2))

	require.Len(t, body, 2)
	ifInstr := body[1]
	require.Equal(t, OpIf, ifInstr.Op)
	require.Len(t, ifInstr.Body, 2)
	require.Len(t, ifInstr.Else, 2)
}
