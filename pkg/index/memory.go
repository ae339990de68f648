package index

import (
	"context"
	"sort"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/value"
)

type postings map[string]mapset.Set[RowID]

func (p postings) add(key string, id RowID) {
	s, ok := p[key]
	if !ok {
		s = mapset.NewThreadUnsafeSet[RowID]()
		p[key] = s
	}
	s.Add(id)
}

// MemoryIndex is a read-only columnar index held in memory. Every column
// gets an equality posting list and a value-sorted id list; string columns
// also get a token posting list used by MATCH.
type MemoryIndex struct {
	name   string
	schema database.Schema
	caps   Capabilities
	rows   [][]interface{}

	equal  []postings
	sorted [][]RowID
	tokens []postings

	opened atomic.Int64
	closed atomic.Int64
}

// NewMemoryIndex indexes rows, which must be aligned with schema and hold
// values already coerced to the column types.
func NewMemoryIndex(name string, schema database.Schema, caps Capabilities, rows [][]interface{}) *MemoryIndex {
	idx := &MemoryIndex{
		name:   name,
		schema: schema,
		caps:   caps,
		rows:   rows,
		equal:  make([]postings, len(schema)),
		sorted: make([][]RowID, len(schema)),
		tokens: make([]postings, len(schema)),
	}
	for c, col := range schema {
		idx.equal[c] = postings{}
		if col.Type == value.String {
			idx.tokens[c] = postings{}
		}
		var present []RowID
		for i, row := range rows {
			v := row[c]
			if v == nil {
				continue
			}
			id := RowID(i)
			present = append(present, id)
			idx.equal[c].add(value.Key(v), id)
			if s, ok := v.(string); ok && idx.tokens[c] != nil {
				for _, tok := range value.Tokens(s) {
					idx.tokens[c].add(tok, id)
				}
			}
		}
		sort.SliceStable(present, func(i, j int) bool {
			cmp, _ := value.Compare(rows[present[i]][c], rows[present[j]][c])
			return cmp < 0
		})
		idx.sorted[c] = present
	}
	return idx
}

// Build reads every row of table into a new MemoryIndex.
func Build(table database.Table, caps Capabilities) (*MemoryIndex, error) {
	it, err := table.Iterate()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows [][]interface{}
	for it.Next() {
		vals := it.Row().Values()
		row := make([]interface{}, len(vals))
		copy(row, vals)
		rows = append(rows, row)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return NewMemoryIndex(table.Name(), table.Schema(), caps, rows), nil
}

func (m *MemoryIndex) Name() string               { return m.name }
func (m *MemoryIndex) Schema() database.Schema    { return m.schema }
func (m *MemoryIndex) Capabilities() Capabilities { return m.caps }
func (m *MemoryIndex) RowCount() int              { return len(m.rows) }

// Iterate scans the stored rows in id order.
func (m *MemoryIndex) Iterate() (database.RowIterator, error) {
	return database.NewSliceIterator(m.schema, m.rows), nil
}

// OpenReaders returns the number of readers opened and not yet closed.
func (m *MemoryIndex) OpenReaders() int {
	return int(m.opened.Load() - m.closed.Load())
}

func (m *MemoryIndex) Open(ctx context.Context) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.opened.Add(1)
	return &memoryReader{index: m}, nil
}

type memoryReader struct {
	index  *MemoryIndex
	closed bool
}

func (r *memoryReader) RunNativeQuery(ctx context.Context, q Query) (RowIDIterator, error) {
	if r.closed {
		return nil, errorx.New("reader is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !Supported(q, r.index.caps) {
		return nil, errorx.Newf(errorx.GENERAL_ERR, "index '%s' cannot evaluate %s", r.index.name, q)
	}
	set, err := r.index.eval(q)
	if err != nil {
		return nil, err
	}
	ids := set.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return newSliceIDIterator(ids), nil
}

func (r *memoryReader) FetchRow(ctx context.Context, id RowID) (database.Row, error) {
	if r.closed {
		return nil, errorx.New("reader is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id < 0 || int(id) >= len(r.index.rows) {
		return nil, errorx.NewNotFound("row %d not found in index '%s'", id, r.index.name)
	}
	return database.NewTupleRow(r.index.schema, r.index.rows[id]), nil
}

func (r *memoryReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.index.closed.Add(1)
	return nil
}

func (m *MemoryIndex) all() mapset.Set[RowID] {
	s := mapset.NewThreadUnsafeSet[RowID]()
	for i := range m.rows {
		s.Add(RowID(i))
	}
	return s
}

func (m *MemoryIndex) eval(q Query) (mapset.Set[RowID], error) {
	switch v := q.(type) {
	case MatchAll:
		return m.all(), nil
	case MatchNone:
		return mapset.NewThreadUnsafeSet[RowID](), nil
	case *Term:
		return m.evalTerm(v)
	case *And:
		l, err := m.eval(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := m.eval(v.Right)
		if err != nil {
			return nil, err
		}
		return l.Intersect(r), nil
	case *Or:
		l, err := m.eval(v.Left)
		if err != nil {
			return nil, err
		}
		r, err := m.eval(v.Right)
		if err != nil {
			return nil, err
		}
		return l.Union(r), nil
	case *Not:
		inner, err := m.eval(v.Inner)
		if err != nil {
			return nil, err
		}
		return m.all().Difference(inner), nil
	}
	return nil, errorx.Newf(errorx.GENERAL_ERR, "unsupported native query %T", q)
}

func (m *MemoryIndex) evalTerm(t *Term) (mapset.Set[RowID], error) {
	c, err := m.schema.IndexOf(t.Column)
	if err != nil {
		return nil, err
	}
	out := mapset.NewThreadUnsafeSet[RowID]()
	if t.Value == nil {
		return out, nil
	}

	switch {
	case t.Op == value.Eq:
		if s, ok := m.equal[c][value.Key(t.Value)]; ok {
			return s.Clone(), nil
		}
		return out, nil
	case t.Op == value.Match && m.tokens[c] != nil:
		s, ok := t.Value.(string)
		if !ok {
			return out, nil
		}
		toks := value.Tokens(s)
		if len(toks) != 1 {
			return out, nil
		}
		if ids, ok := m.tokens[c][toks[0]]; ok {
			return ids.Clone(), nil
		}
		return out, nil
	case t.Op.Range() && m.schema[c].Type != value.Unknown && value.Comparable(m.schema[c].Type, value.TypeOf(t.Value)):
		for _, id := range m.rangeIDs(c, t.Op, t.Value) {
			out.Add(id)
		}
		return out, nil
	}

	// Remaining operators are answered by scanning the column.
	for i, row := range m.rows {
		if value.Apply(t.Op, row[c], t.Value) {
			out.Add(RowID(i))
		}
	}
	return out, nil
}

// rangeIDs binary-searches the value-sorted ids of column c.
func (m *MemoryIndex) rangeIDs(c int, op value.Op, lit interface{}) []RowID {
	ids := m.sorted[c]
	cmpAt := func(i int) int {
		cmp, _ := value.Compare(m.rows[ids[i]][c], lit)
		return cmp
	}
	// first position with value >= lit and first position with value > lit
	lo := sort.Search(len(ids), func(i int) bool { return cmpAt(i) >= 0 })
	hi := sort.Search(len(ids), func(i int) bool { return cmpAt(i) > 0 })
	switch op {
	case value.Lt:
		return ids[:lo]
	case value.Le:
		return ids[:hi]
	case value.Gt:
		return ids[hi:]
	case value.Ge:
		return ids[lo:]
	}
	return nil
}
