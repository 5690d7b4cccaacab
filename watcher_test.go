package paio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/gopaio/paio/internal/kaio"
)

func TestWatcherCompleteWritesResultBeforeError(t *testing.T) {
	eng, _ := newTestEngine(t)
	w := eng.watch

	r := newRequest(1, OpRead, make([]byte, 1), 0, 0, Sigevent{})
	r.tid = currentTID()

	w.complete(r, kaio.Event{Res: 4})

	require.Equal(t, int64(4), r.result.Load())
	require.Equal(t, 0, r.Error())
}

func TestWatcherCompleteNegativeResultBecomesErrno(t *testing.T) {
	eng, _ := newTestEngine(t)
	w := eng.watch

	r := newRequest(1, OpRead, make([]byte, 1), 0, 0, Sigevent{})
	r.tid = currentTID()

	w.complete(r, kaio.Event{Res: -5})

	require.Equal(t, int64(-5), r.result.Load())
	require.Equal(t, 5, r.Error())
}

func TestWatcherCompleteWakesRegisteredWaiter(t *testing.T) {
	eng, _ := newTestEngine(t)
	w := eng.watch

	r := newRequest(1, OpRead, make([]byte, 1), 0, 0, Sigevent{})
	r.tid = currentTID()

	fd, err := kaio.NewEventfd()
	require.NoError(t, err)
	defer unix.Close(fd)
	r.waiterNotifier.Store(int64(fd))

	w.complete(r, kaio.Event{Res: 1})

	ready, err := kaio.WaitReadable(fd, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ready)
}

func TestWatcherCompleteDoesNotPanicWithNoWaiter(t *testing.T) {
	eng, _ := newTestEngine(t)
	w := eng.watch

	r := newRequest(1, OpRead, make([]byte, 1), 0, 0, Sigevent{})
	r.tid = currentTID()

	require.NotPanics(t, func() { w.complete(r, kaio.Event{Res: 0}) })
}
