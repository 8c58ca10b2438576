package model

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
)

// LinkSetID is a stable handle to a link set. Handles are never reused for a
// different link set: a recycled slot gets a new generation.
type LinkSetID struct {
	index      uint32
	generation uint32
}

func (id LinkSetID) String() string {
	return fmt.Sprintf("linkset#%d.%d", id.index, id.generation)
}

// linkSet is one arena record. members holds the connected groups in the
// order they joined; holders counts the groups whose handle refers to the
// record, connected or not.
type linkSet struct {
	generation uint32
	live       bool
	holders    int
	linkID     string
	members    []*GroupNode
}

// linkSetArena owns every link set. All membership edits happen under mu so
// that a read-modify-write of a member list is a single atomic step.
type linkSetArena struct {
	mu      sync.Mutex
	records []linkSet
	free    []uint32
}

var linkSets = &linkSetArena{}

// LiveLinkSets returns the number of allocated link sets.
func LiveLinkSets() int {
	return linkSets.liveCount()
}

func (a *linkSetArena) liveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records) - len(a.free)
}

// allocate creates an empty link set held by one group.
func (a *linkSetArena) allocate() LinkSetID {
	a.mu.Lock()
	defer a.mu.Unlock()

	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.records))
		a.records = append(a.records, linkSet{})
	}
	rec := &a.records[index]
	rec.live = true
	rec.holders = 1
	rec.linkID = ulid.Make().String()
	rec.members = nil
	return LinkSetID{index: index, generation: rec.generation}
}

// lookup returns the live record for id. Caller holds a.mu.
func (a *linkSetArena) lookup(id LinkSetID) *linkSet {
	if int(id.index) >= len(a.records) {
		panic(fmt.Sprintf("model: unknown %s", id))
	}
	rec := &a.records[id.index]
	if !rec.live || rec.generation != id.generation {
		panic(fmt.Sprintf("model: stale %s", id))
	}
	return rec
}

// releaseLocked drops one holder and frees the record when none remain.
func (a *linkSetArena) releaseLocked(id LinkSetID) {
	rec := a.lookup(id)
	rec.holders--
	if rec.holders > 0 {
		return
	}
	rec.live = false
	rec.members = nil
	rec.linkID = ""
	rec.generation++
	a.free = append(a.free, id.index)
}

func (a *linkSetArena) release(id LinkSetID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked(id)
}

func (a *linkSetArena) contains(id LinkSetID, g *GroupNode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lo.Contains(a.lookup(id).members, g)
}

func (a *linkSetArena) connectLocked(id LinkSetID, g *GroupNode) {
	rec := a.lookup(id)
	if !lo.Contains(rec.members, g) {
		rec.members = append(rec.members, g)
	}
}

func (a *linkSetArena) disconnectLocked(id LinkSetID, g *GroupNode) {
	rec := a.lookup(id)
	if i := lo.IndexOf(rec.members, g); i >= 0 {
		rec.members = append(rec.members[:i], rec.members[i+1:]...)
	}
}

func (a *linkSetArena) connect(id LinkSetID, g *GroupNode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connectLocked(id, g)
}

func (a *linkSetArena) disconnect(id LinkSetID, g *GroupNode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disconnectLocked(id, g)
}

// move disconnects g from its current set, transfers its handle to the set
// identified by to and connects it there. The abandoned set is freed if g
// was its last holder.
func (a *linkSetArena) move(g *GroupNode, to LinkSetID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	from := g.linkSet
	if from == to {
		return
	}
	a.disconnectLocked(from, g)
	a.lookup(to).holders++
	g.linkSet = to
	a.releaseLocked(from)
	a.connectLocked(to, g)
}

// members returns a snapshot of the connected members of id.
func (a *linkSetArena) members(id LinkSetID) []*GroupNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec := a.lookup(id)
	result := make([]*GroupNode, len(rec.members))
	copy(result, rec.members)
	return result
}

func (a *linkSetArena) linkID(id LinkSetID) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lookup(id).linkID
}
