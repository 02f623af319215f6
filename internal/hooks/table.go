package hooks

import (
	"fmt"
	"maps"
	"slices"
)

// Role says which side of a traced function an address belongs to.
type Role int

const (
	RoleEntry Role = iota
	RoleExit
)

func (r Role) String() string {
	if r == RoleExit {
		return "exit"
	}
	return "entry"
}

// Action is what happens when a hooked address executes.
type Action struct {
	Addr uint64
	Role Role
	Spec *Spec
}

// Table maps guest addresses to actions.
type Table struct {
	actions map[uint64]Action
}

// NewTable validates specs and indexes their addresses.
func NewTable(specs []Spec) (*Table, error) {
	t := &Table{actions: make(map[uint64]Action)}

	for i := range specs {
		spec := specs[i]
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		spec.Exits = slices.Clone(spec.Exits)
		spec.ArgOffsets = slices.Clone(spec.ArgOffsets)

		if err := t.add(Action{Addr: spec.Entry, Role: RoleEntry, Spec: &spec}); err != nil {
			return nil, err
		}
		for _, exit := range spec.Exits {
			if err := t.add(Action{Addr: exit, Role: RoleExit, Spec: &spec}); err != nil {
				return nil, err
			}
		}
	}

	return t, nil
}

func (t *Table) add(a Action) error {
	if existing, ok := t.actions[a.Addr]; ok {
		return fmt.Errorf("address %#x is hooked by both %s (%s) and %s (%s)",
			a.Addr, existing.Spec.Function, existing.Role, a.Spec.Function, a.Role)
	}
	t.actions[a.Addr] = a
	return nil
}

// Lookup returns the action bound to addr.
func (t *Table) Lookup(addr uint64) (Action, bool) {
	a, ok := t.actions[addr]
	return a, ok
}

// Addresses returns every hooked address in ascending order.
func (t *Table) Addresses() []uint64 {
	return slices.Sorted(maps.Keys(t.actions))
}

// Len returns the number of hooked addresses.
func (t *Table) Len() int {
	return len(t.actions)
}
