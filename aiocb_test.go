package paio

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNewRequestInitialState(t *testing.T) {
	r := newRequest(1, OpRead, make([]byte, 4), 0, 0, Sigevent{})

	require.Equal(t, InProgress, r.Error())
	require.Equal(t, resultPending, r.result.Load())
	require.Equal(t, int64(-1), r.waiterNotifier.Load())
	require.False(t, r.done())
}

func TestRequestDoneTracksErrv(t *testing.T) {
	r := newRequest(1, OpRead, nil, 0, 0, Sigevent{})
	require.False(t, r.done())
	r.errv.Store(0)
	require.True(t, r.done())
}

func TestRequestErrorPrefersListErr(t *testing.T) {
	r := newRequest(1, OpRead, nil, 0, 0, Sigevent{})
	r.listErr.Store(int32(unix.EAGAIN))
	require.Equal(t, int(unix.EAGAIN), r.Error())

	// Even once the record itself completes successfully, a stamped list
	// error takes precedence — it represents a submission-time failure
	// the record never actually experienced.
	r.errv.Store(0)
	require.Equal(t, int(unix.EAGAIN), r.Error())
}

func TestRequestErrorReportsEinvalOnceRemovedWithoutTerminalStatus(t *testing.T) {
	r := newRequest(1, OpRead, nil, 0, 0, Sigevent{})
	require.Equal(t, InProgress, r.Error())

	r.removed.Store(true)
	require.Equal(t, int(unix.EINVAL), r.Error())
}

func TestRequestErrorDoesNotOverrideTerminalStatusAfterRemoval(t *testing.T) {
	r := newRequest(1, OpRead, nil, 0, 0, Sigevent{})
	r.errv.Store(0)
	r.removed.Store(true)
	require.Equal(t, 0, r.Error())
}
