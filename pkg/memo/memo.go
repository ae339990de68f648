package memo

import (
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/plan"
)

// GroupID addresses an equivalence class in the memo arena.
type GroupID int

// ExprID addresses an expression in the memo arena.
type ExprID int

// NoGroup asks Insert to place an expression in a new or matching group.
const NoGroup GroupID = -1

// Expr is one operator over input groups. Inputs hold the group ids seen at
// registration; use Memo.Find for their current representative.
type Expr struct {
	ID     ExprID
	Op     plan.Operator
	Conv   plan.Convention
	Inputs []GroupID
	Group  GroupID

	digest string
}

// Winner is the cheapest known expression of a group for one convention.
type Winner struct {
	Expr ExprID
	Cost float64
}

// Group is an equivalence class: all its expressions produce the same rows.
type Group struct {
	ID     GroupID
	Exprs  []ExprID
	Schema database.Schema
	Rows   float64

	winners map[plan.Convention]Winner
	parents []ExprID
}

// Best returns the winner for conv.
func (g *Group) Best(conv plan.Convention) (Winner, bool) {
	w, ok := g.winners[conv]
	return w, ok
}

// Offer records expr as winner for conv when it is strictly cheaper than
// the incumbent. Ties keep the incumbent.
func (g *Group) Offer(conv plan.Convention, expr ExprID, cost float64) bool {
	if w, ok := g.winners[conv]; ok && cost >= w.Cost {
		return false
	}
	g.winners[conv] = Winner{Expr: expr, Cost: cost}
	return true
}

// Memo is the call-scoped arena of groups and expressions. It is not safe
// for concurrent use.
type Memo struct {
	groups []*Group
	exprs  []*Expr
	parent []GroupID

	index map[uint64][]ExprID

	added  []ExprID
	merged []GroupID
}

func New() *Memo {
	return &Memo{index: map[uint64][]ExprID{}}
}

// Find returns the representative of g's class.
func (m *Memo) Find(g GroupID) GroupID {
	for m.parent[g] != g {
		m.parent[g] = m.parent[m.parent[g]]
		g = m.parent[g]
	}
	return g
}

// Group returns the representative group of g.
func (m *Memo) Group(g GroupID) *Group {
	return m.groups[m.Find(g)]
}

func (m *Memo) Expr(id ExprID) *Expr {
	return m.exprs[id]
}

// GroupOf returns the current group of an expression.
func (m *Memo) GroupOf(id ExprID) *Group {
	return m.Group(m.exprs[id].Group)
}

// Input returns the current group of the i-th input of e.
func (m *Memo) Input(e *Expr, i int) *Group {
	return m.Group(e.Inputs[i])
}

// Parents returns the expressions that take g as an input.
func (m *Memo) Parents(g GroupID) []ExprID {
	return m.Group(g).parents
}

// NumGroups returns how many groups were ever created, merged ones included.
func (m *Memo) NumGroups() int { return len(m.groups) }

// NumExprs returns the number of registered expressions.
func (m *Memo) NumExprs() int { return len(m.exprs) }

// TakeAdded returns the expressions registered since the last call.
func (m *Memo) TakeAdded() []ExprID {
	out := m.added
	m.added = nil
	return out
}

// TakeMerged returns the groups that absorbed other groups since the last
// call, as current representatives.
func (m *Memo) TakeMerged() []GroupID {
	seen := map[GroupID]bool{}
	var out []GroupID
	for _, g := range m.merged {
		r := m.Find(g)
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	m.merged = nil
	return out
}

// InsertTree registers a plan tree bottom up and returns its root group.
func (m *Memo) InsertTree(n *plan.Node) (GroupID, error) {
	return m.Insert(FromNode(n), NoGroup)
}

// Insert registers alt. With a target group, alt is declared equivalent to
// it: a Ref merges the two groups, a new expression joins the target, and an
// expression already known elsewhere merges its group with the target.
func (m *Memo) Insert(alt Alt, target GroupID) (GroupID, error) {
	if alt.IsRef() {
		g := m.Find(alt.Group)
		if target != NoGroup {
			return m.merge(target, g), nil
		}
		return g, nil
	}

	inputs := make([]GroupID, len(alt.Inputs))
	for i, in := range alt.Inputs {
		g, err := m.Insert(in, NoGroup)
		if err != nil {
			return NoGroup, err
		}
		inputs[i] = g
	}

	digest := alt.Op.Digest()
	key := m.key(alt.Op.Kind(), alt.Conv, digest, inputs)
	if id, ok := m.lookup(key, alt.Op.Kind(), alt.Conv, digest, inputs, -1); ok {
		g := m.Find(m.exprs[id].Group)
		if target != NoGroup {
			return m.merge(target, g), nil
		}
		return g, nil
	}

	schemas := make([]database.Schema, len(inputs))
	rows := make([]float64, len(inputs))
	for i, in := range inputs {
		schemas[i] = m.Group(in).Schema
		rows[i] = m.Group(in).Rows
	}
	schema, err := alt.Op.DeriveSchema(schemas)
	if err != nil {
		return NoGroup, err
	}

	var group *Group
	if target == NoGroup {
		group = &Group{
			ID:      GroupID(len(m.groups)),
			Schema:  schema,
			Rows:    plan.EstimateRows(alt.Op, rows),
			winners: map[plan.Convention]Winner{},
		}
		m.groups = append(m.groups, group)
		m.parent = append(m.parent, group.ID)
	} else {
		group = m.Group(target)
		if !group.Schema.Equal(schema) {
			return NoGroup, errorx.NewSchemaMismatch("%s produces %s, group %d has %s", alt.Op.Kind(), schema, group.ID, group.Schema)
		}
	}

	e := &Expr{
		ID:     ExprID(len(m.exprs)),
		Op:     alt.Op,
		Conv:   alt.Conv,
		Inputs: inputs,
		Group:  group.ID,
		digest: digest,
	}
	m.exprs = append(m.exprs, e)
	group.Exprs = append(group.Exprs, e.ID)
	for _, in := range inputs {
		p := m.Group(in)
		p.parents = append(p.parents, e.ID)
	}
	m.index[key] = append(m.index[key], e.ID)
	m.added = append(m.added, e.ID)
	return group.ID, nil
}

func (m *Memo) key(kind plan.Kind, conv plan.Convention, digest string, inputs []GroupID) uint64 {
	h := murmur3.New64()
	fmt.Fprintf(h, "%d|%d|%s", kind, conv, digest)
	for _, in := range inputs {
		fmt.Fprintf(h, "|%d", m.Find(in))
	}
	return h.Sum64()
}

// lookup finds a registered expression other than skip with the given
// identity.
func (m *Memo) lookup(key uint64, kind plan.Kind, conv plan.Convention, digest string, inputs []GroupID, skip ExprID) (ExprID, bool) {
	for _, id := range m.index[key] {
		e := m.exprs[id]
		if id == skip || e.Op.Kind() != kind || e.Conv != conv || e.digest != digest || len(e.Inputs) != len(inputs) {
			continue
		}
		same := true
		for i := range inputs {
			if m.Find(e.Inputs[i]) != m.Find(inputs[i]) {
				same = false
				break
			}
		}
		if same {
			return id, true
		}
	}
	return 0, false
}

// merge unites the classes of a and b and returns the representative. The
// older group survives and keeps its winner on equal cost. Winners that now
// read their own group are dropped. Parents of the absorbed group are re-indexed; two
// parents that become identical prove their own groups equivalent, which
// cascades further merges.
func (m *Memo) merge(a, b GroupID) GroupID {
	pending := [][2]GroupID{{a, b}}
	for len(pending) > 0 {
		pair := pending[0]
		pending = pending[1:]
		ra, rb := m.Find(pair[0]), m.Find(pair[1])
		if ra == rb {
			continue
		}
		if rb < ra {
			ra, rb = rb, ra
		}
		keep, gone := m.groups[ra], m.groups[rb]
		m.parent[rb] = ra
		keep.Exprs = append(keep.Exprs, gone.Exprs...)
		keep.parents = append(keep.parents, gone.parents...)
		for conv, w := range keep.winners {
			if m.SelfLoop(m.exprs[w.Expr]) {
				delete(keep.winners, conv)
			}
		}
		for conv, w := range gone.winners {
			if m.SelfLoop(m.exprs[w.Expr]) {
				continue
			}
			if cur, ok := keep.winners[conv]; !ok || w.Cost < cur.Cost {
				keep.winners[conv] = w
			}
		}
		gone.Exprs, gone.parents, gone.winners = nil, nil, nil
		m.merged = append(m.merged, ra)

		for _, pid := range keep.parents {
			p := m.exprs[pid]
			key := m.key(p.Op.Kind(), p.Conv, p.digest, p.Inputs)
			if other, ok := m.lookup(key, p.Op.Kind(), p.Conv, p.digest, p.Inputs, pid); ok {
				pending = append(pending, [2]GroupID{m.exprs[other].Group, p.Group})
				continue
			}
			if !contains(m.index[key], pid) {
				m.index[key] = append(m.index[key], pid)
			}
		}
	}
	return m.Find(a)
}

// SelfLoop reports whether e reads its own group in the convention it
// produces. Such an expression can never be a winner.
func (m *Memo) SelfLoop(e *Expr) bool {
	if plan.RequiredInput(e.Op, e.Conv) != e.Conv {
		return false
	}
	g := m.Find(e.Group)
	for _, in := range e.Inputs {
		if m.Find(in) == g {
			return true
		}
	}
	return false
}

func contains(ids []ExprID, id ExprID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
