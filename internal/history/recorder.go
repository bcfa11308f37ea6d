package history

import (
	"context"
	"time"
)

const (
	// recorderBuffer is the number of entries held while the writer catches
	// up. The command log sees a handful of operator commands per minute, so
	// a small buffer absorbs any realistic burst.
	recorderBuffer = 64

	// recordTimeout bounds each database write issued by the recorder.
	recordTimeout = 5 * time.Second
)

// Logger is the logging interface used by the Recorder.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder decouples command log writes from the event path that produces
// them. Session events are delivered on the broker's dispatch goroutine,
// where a synchronous database write would delay every subsequent inbound
// message; the recorder takes entries without blocking and writes them from
// a single background goroutine instead.
type Recorder struct {
	repo    Repository
	logger  Logger
	entries chan *Entry
	stop    chan struct{}
	done    chan struct{}
}

// NewRecorder creates a recorder writing through the given repository.
// Call Start to begin draining and Close to flush on shutdown.
//
// Parameters:
//   - repo: Destination for recorded entries
//   - logger: Logger for write failures and drops (may be nil)
//
// Returns:
//   - *Recorder: Recorder ready to Start
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return &Recorder{
		repo:    repo,
		logger:  logger,
		entries: make(chan *Entry, recorderBuffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the background writer goroutine.
func (r *Recorder) Start() {
	go r.loop()
}

// Enqueue hands an entry to the recorder without blocking.
//
// When the buffer is full the entry is dropped and a warning logged: the
// command log is an operational record, not a ledger, and must never stall
// the event path feeding it. Entries enqueued after Close are not written.
func (r *Recorder) Enqueue(entry *Entry) {
	select {
	case r.entries <- entry:
	default:
		if r.logger != nil {
			r.logger.Warn("command log buffer full, dropping entry",
				"kind", entry.Kind,
				"channel", entry.Channel,
			)
		}
	}
}

// Close stops the writer after draining whatever is buffered.
func (r *Recorder) Close() {
	close(r.stop)
	<-r.done
}

func (r *Recorder) loop() {
	defer close(r.done)

	for {
		select {
		case entry := <-r.entries:
			r.write(entry)
		case <-r.stop:
			// Flush anything still buffered, then exit.
			for {
				select {
				case entry := <-r.entries:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	err := r.repo.Record(ctx, entry)
	cancel()

	if err != nil && r.logger != nil {
		r.logger.Error("command log write failed",
			"kind", entry.Kind,
			"channel", entry.Channel,
			"error", err,
		)
	}
}
