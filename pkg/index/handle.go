package index

import (
	"context"

	"github.com/bisegni/idxq/pkg/database"
)

// RowID addresses a row inside one index.
type RowID int

// Handle is a table stored in an index. The optimizer recognizes index
// backed tables by this interface.
type Handle interface {
	database.Table
	Capabilities() Capabilities
	RowCount() int
	Open(ctx context.Context) (Reader, error)
}

// Reader is an open session against an index. It must be closed.
type Reader interface {
	RunNativeQuery(ctx context.Context, q Query) (RowIDIterator, error)
	FetchRow(ctx context.Context, id RowID) (database.Row, error)
	Close() error
}

// RowIDIterator streams the ids matched by a native query in ascending order.
type RowIDIterator interface {
	Next() bool
	ID() RowID
	Error() error
	Close() error
}

type sliceIDIterator struct {
	ids   []RowID
	index int
}

func newSliceIDIterator(ids []RowID) *sliceIDIterator {
	return &sliceIDIterator{ids: ids, index: -1}
}

func (it *sliceIDIterator) Next() bool {
	it.index++
	return it.index < len(it.ids)
}

func (it *sliceIDIterator) ID() RowID {
	return it.ids[it.index]
}

func (it *sliceIDIterator) Error() error { return nil }
func (it *sliceIDIterator) Close() error { return nil }
