package paio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopaio/paio/internal/kaio"
)

func TestSigeventQueueSkipsWhenNotifyNone(t *testing.T) {
	sev := Sigevent{Notify: NotifyNone, Signo: int(kaio.Gettid())}
	// NotifyNone must never attempt delivery, even with a nonzero Signo;
	// if it did, this would deliver a bogus real-time signal to the test
	// process and almost certainly crash the test binary.
	require.NotPanics(t, func() { sev.queue(currentTID()) })
}

func TestSigeventQueueSkipsWhenSignoZero(t *testing.T) {
	sev := Sigevent{Notify: NotifySignal, Signo: 0}
	require.NotPanics(t, func() { sev.queue(currentTID()) })
}
