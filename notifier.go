package paio

import (
	"github.com/gopaio/paio/internal/kaio"
)

// notifier is the Notifier (C2): one process-wide kernel readiness
// counter, created at initialization, that every submitted request is
// wired to via IOCB_FLAG_RESFD. The watcher is the only reader; the
// kernel is the only writer.
type notifier struct {
	fd int
}

func newNotifier() (*notifier, error) {
	fd, err := kaio.NewEventfd()
	if err != nil {
		return nil, err
	}
	return &notifier{fd: fd}, nil
}

// wait blocks reading the next accumulated completion credit.
func (n *notifier) wait() (uint64, error) {
	return kaio.ReadEventfd(n.fd)
}
