// Package resolver implements the second-pass reference resolution
// mechanism (K) for citations that could not be resolved inline because the
// cited object had not been parsed yet.
package resolver

import (
	"github.com/nmoscene/nmofile/internal/arena"
	"github.com/nmoscene/nmofile/internal/guid"
	"github.com/nmoscene/nmofile/internal/nmoerr"
	"github.com/nmoscene/nmofile/internal/object"
)

// Strategy is how a citation site should be resolved.
type Strategy int

const (
	ByID Strategy = iota
	ByName
	ByGUID
)

// Site identifies where a resolved object ID should be written back to.
type Site struct {
	Data   []uint32
	Offset int
}

// State is the outcome of attempting to resolve one citation.
type State int

const (
	Pending State = iota
	Resolved
	Unresolved
)

// Citation is one second-pass resolution request.
type Citation struct {
	Site        Site
	Strategy    Strategy
	Name        string
	ClassFilter uint32
	GUID        guid.GUID
	ID          uint32
	State       State
}

// Resolver accumulates citations that could not be resolved while their
// objects were still being parsed, and resolves them once the whole object
// graph exists. citations is arena-accounted like every other per-session
// container: its growth is counted in the session arena's byte totals, while
// the backing slice itself lives on the Go heap.
type Resolver struct {
	repo      *object.Repository
	citations *arena.Array[*Citation]
	strict    bool
}

// New returns a Resolver bound to repo, accounting citation storage against
// a. strict controls whether ResolveAll returns an error when citations
// remain unresolved.
func New(repo *object.Repository, a *arena.Arena, strict bool) *Resolver {
	return &Resolver{repo: repo, citations: arena.NewArray[*Citation](a), strict: strict}
}

// Add registers a citation for later resolution.
func (r *Resolver) Add(c *Citation) {
	c.State = Pending
	r.citations.Push(c)
}

// ResolveAll iterates the pending citations until a fixed point (a pass that
// resolves nothing new), writing resolved object IDs back to their sites.
// Unresolved entries are counted; in strict mode any remainder fails.
func (r *Resolver) ResolveAll() (resolved, unresolved int, err error) {
	for {
		progressed := false
		for i := 0; i < r.citations.Len(); i++ {
			c := r.citations.At(i)
			if c.State != Pending {
				continue
			}
			if obj, ok := r.resolveOne(c); ok {
				c.Site.Data[c.Site.Offset] = obj.ID
				c.State = Resolved
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	for i := 0; i < r.citations.Len(); i++ {
		c := r.citations.At(i)
		switch c.State {
		case Resolved:
			resolved++
		default:
			c.State = Unresolved
			unresolved++
		}
	}
	if unresolved > 0 && r.strict {
		return resolved, unresolved, nmoerr.New(nmoerr.ReferenceUnresolved, "%d citation(s) could not be resolved", unresolved)
	}
	return resolved, unresolved, nil
}

func (r *Resolver) resolveOne(c *Citation) (*object.Object, bool) {
	switch c.Strategy {
	case ByID:
		return r.repo.FindByID(c.ID)
	case ByName:
		matches := r.repo.FindByName(c.Name, c.ClassFilter)
		if len(matches) == 0 {
			return nil, false
		}
		return matches[0], true
	case ByGUID:
		matches := r.repo.FindByGUID(c.GUID)
		if len(matches) == 0 {
			return nil, false
		}
		return matches[0], true
	default:
		return nil, false
	}
}

// Pending returns the number of citations still in the Pending state
// (neither resolved nor marked unresolved by ResolveAll).
func (r *Resolver) Pending() int {
	n := 0
	for i := 0; i < r.citations.Len(); i++ {
		if r.citations.At(i).State == Pending {
			n++
		}
	}
	return n
}
