//go:build unit

package disposal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationSetAddRemove(t *testing.T) {
	t.Parallel()

	set := newOperationSet()
	op := newOperation("unit-a", time.Second, func() {})

	set.add(op)
	assert.Equal(t, 1, set.size())

	set.remove(op)
	assert.Equal(t, 0, set.size())
}

func TestOperationSetStaleRemoveKeepsSuccessor(t *testing.T) {
	t.Parallel()

	set := newOperationSet()

	first := newOperation("unit-a", time.Second, func() {})
	second := newOperation("unit-a", time.Second, func() {})

	set.add(first)
	set.add(second)

	// The stale record retires without deleting the record that replaced it.
	set.remove(first)

	infos := set.infos()
	require.Len(t, infos, 1)
	assert.Equal(t, second.id, infos[0].OperationID)

	set.remove(second)
	assert.Equal(t, 0, set.size())
}

func TestOperationSetSnapshotIsDetached(t *testing.T) {
	t.Parallel()

	set := newOperationSet()
	set.add(newOperation("unit-a", time.Second, func() {}))

	ops := set.snapshot()
	require.Len(t, ops, 1)

	set.remove(ops[0])

	assert.Equal(t, 0, set.size())
	assert.Len(t, ops, 1)
}

func TestOperationInfoMirrorsOperation(t *testing.T) {
	t.Parallel()

	set := newOperationSet()
	op := newOperation("unit-b", 250*time.Millisecond, func() {})
	set.add(op)

	infos := set.infos()
	require.Len(t, infos, 1)

	info := infos[0]
	assert.Equal(t, op.id, info.OperationID)
	assert.NotEmpty(t, info.OperationID)
	assert.Equal(t, "unit-b", info.UnitID)
	assert.Equal(t, 250*time.Millisecond, info.Timeout)
	assert.WithinDuration(t, time.Now(), info.StartedAt, time.Second)
}

func TestOperationIDsAreUnique(t *testing.T) {
	t.Parallel()

	a := newOperation("unit-a", time.Second, func() {})
	b := newOperation("unit-a", time.Second, func() {})

	assert.NotEqual(t, a.id, b.id)
}
