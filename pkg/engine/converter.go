package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/bisegni/idxq/pkg/database"
	"github.com/bisegni/idxq/pkg/errorx"
	"github.com/bisegni/idxq/pkg/index"
	"github.com/bisegni/idxq/pkg/metrics"
	"github.com/bisegni/idxq/pkg/plan"
	"github.com/bisegni/idxq/pkg/pushdown"
)

// converterIterator materializes the rows of an index scan. The reader is
// opened on the first pull and released on exhaustion, on error and on
// Close, whichever comes first.
type converterIterator struct {
	ctx    context.Context
	handle index.Handle
	scan   *plan.Scan
	schema database.Schema
	verify bool
	log    *logrus.Entry
	stats  *metrics.Metrics

	reader  index.Reader
	ids     index.RowIDIterator
	row     database.Row
	err     error
	started bool
	done    bool
}

func (it *converterIterator) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		if err := it.open(); err != nil {
			it.fail(err)
			return false
		}
	}
	if !it.ids.Next() {
		if err := it.ids.Error(); err != nil {
			it.fail(err)
			return false
		}
		it.done = true
		it.release()
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.fail(err)
		return false
	}
	row, err := it.reader.FetchRow(it.ctx, it.ids.ID())
	if err != nil {
		it.fail(err)
		return false
	}
	if it.stats != nil {
		it.stats.RowsFetched.Inc()
	}
	if it.verify {
		it.check(row)
	}
	it.row = row
	return true
}

func (it *converterIterator) open() error {
	reader, err := it.handle.Open(it.ctx)
	if err != nil {
		return err
	}
	it.reader = reader
	if it.stats != nil {
		it.stats.ReadersOpened.Inc()
	}
	native := it.scan.NativeQuery()
	it.log.Debugf("Opened reader, native query %s", native)
	ids, err := reader.RunNativeQuery(it.ctx, native)
	if err != nil {
		return err
	}
	it.ids = ids
	return nil
}

// check asserts that a fetched row is consistent with the pushed-down
// predicate. Violations mean the translation or the index is unsound and
// results can no longer be trusted.
func (it *converterIterator) check(row database.Row) {
	var err error
	native := it.scan.NativeQuery()
	if !native.Matches(row) {
		err = errorx.NewPushdownUnsound("index %s returned %v outside native query %s", it.handle.Name(), row.Primitive(), native)
	} else if d := it.scan.Pushdown; d != nil {
		err = pushdown.Check(d, row)
	}
	if err != nil {
		it.release()
		it.log.WithError(err).Error("Pushdown verification failed")
		panic(err)
	}
}

func (it *converterIterator) fail(err error) {
	it.err = err
	it.done = true
	it.release()
}

func (it *converterIterator) release() {
	if it.ids != nil {
		it.ids.Close()
		it.ids = nil
	}
	if it.reader != nil {
		if err := it.reader.Close(); err != nil {
			it.log.Warnf("Closing reader: %v", err)
		}
		it.reader = nil
		it.log.Debug("Closed reader")
	}
}

func (it *converterIterator) Row() database.Row {
	return it.row
}

func (it *converterIterator) Error() error {
	return it.err
}

func (it *converterIterator) Close() error {
	it.done = true
	it.release()
	return nil
}
