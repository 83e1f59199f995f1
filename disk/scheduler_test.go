package disk_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sediment/common"
	"sediment/disk"
)

func TestScheduler_WriteThenRead_RoundTrips(t *testing.T) {
	m, err := disk.NewFileManager(tempFile(t))
	require.NoError(t, err)
	defer m.Shutdown()

	sched := disk.NewScheduler(m)
	defer sched.Shutdown()

	pid := m.AllocatePage()
	want := make([]byte, common.PageSize)
	want[0] = 0x42

	require.NoError(t, sched.Schedule(disk.Request{IsWrite: true, Data: want, PageID: pid}).Wait())

	got := make([]byte, common.PageSize)
	require.NoError(t, sched.Schedule(disk.Request{IsWrite: false, Data: got, PageID: pid}).Wait())
	require.Equal(t, want, got)
}

func TestScheduler_RunsMultipleRequests(t *testing.T) {
	m, err := disk.NewFileManager(tempFile(t))
	require.NoError(t, err)
	defer m.Shutdown()

	sched := disk.NewScheduler(m)
	defer sched.Shutdown()

	const n = 20
	futures := make([]*disk.Future, n)
	bufs := make([][]byte, n)
	for i := 0; i < n; i++ {
		pid := m.AllocatePage()
		buf := make([]byte, common.PageSize)
		buf[0] = byte(i)
		bufs[i] = buf
		futures[i] = sched.Schedule(disk.Request{IsWrite: true, Data: buf, PageID: pid})
	}
	for i := 0; i < n; i++ {
		require.NoError(t, futures[i].Wait())
	}
}
