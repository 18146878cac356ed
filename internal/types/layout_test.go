package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildLayoutsInheritsFieldSlotsBeforeOwn(t *testing.T) {
	animal := &ClassType{Name: "Animal", Fields: []*Field{{Name: "legs"}}}
	dog := &ClassType{Name: "Dog", Extends: animal, Fields: []*Field{{Name: "breed"}}}

	classes := map[string]*ClassType{"Animal": animal, "Dog": dog}
	BuildLayouts(classes)

	require.Equal(t, uint32(0), animal.Fields[0].Slot)
	require.Equal(t, uint32(1), dog.Fields[0].Slot) // dog.breed comes after animal.legs
}

func TestBuildLayoutsOverriddenMethodKeepsVTableSlot(t *testing.T) {
	animal := &ClassType{Name: "Animal", Methods: []*Method{{Name: "speak"}}}
	dog := &ClassType{Name: "Dog", Extends: animal, Methods: []*Method{{Name: "speak"}, {Name: "fetch"}}}

	classes := map[string]*ClassType{"Animal": animal, "Dog": dog}
	BuildLayouts(classes)

	require.Equal(t, uint32(0), animal.Methods[0].VTableSlot)
	require.Equal(t, uint32(0), dog.Methods[0].VTableSlot) // override shares the base's slot
	require.Equal(t, uint32(1), dog.Methods[1].VTableSlot) // new method gets the next slot
}

func TestDispatchRecordForIsMemoized(t *testing.T) {
	c := &ClassType{Name: "Circle", Methods: []*Method{{Name: "area", VTableSlot: 0}}}
	iface := &InterfaceType{Name: "Shaped", Members: []*Member{{Name: "area", Func: &FuncType{Result: Number}}}}
	l := BuildLayouts(map[string]*ClassType{"Circle": c})

	rec1 := l.DispatchRecordFor(c, iface)
	rec2 := l.DispatchRecordFor(c, iface)
	require.Same(t, rec1, rec2)
	require.Equal(t, []uint32{0}, rec1.MemberSlots)
}
