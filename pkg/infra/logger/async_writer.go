package logger

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const flushInterval = 2 * time.Second

var ErrWriterClosed = errors.New("log writer closed")

// AsyncWriter moves log output off the request path. Write never blocks; when
// the queue is full the line is dropped and counted.
type AsyncWriter struct {
	out     *bufio.Writer
	closer  io.Closer
	lines   chan []byte
	done    chan struct{}
	closed  chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func NewAsyncWriter(out io.Writer, queueSize int) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = 1000
	}
	w := &AsyncWriter{
		out:    bufio.NewWriter(out),
		lines:  make(chan []byte, queueSize),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go w.run()
	return w
}

// NewAsyncFileWriter appends to logFile, creating it with owner-only access.
func NewAsyncFileWriter(logFile string, queueSize int) (*AsyncWriter, error) {
	f, err := os.OpenFile(filepath.Clean(logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	w := NewAsyncWriter(f, queueSize)
	w.closer = f
	return w, nil
}

func (w *AsyncWriter) Write(p []byte) (int, error) {
	select {
	case <-w.done:
		return 0, ErrWriterClosed
	default:
	}
	select {
	case w.lines <- append([]byte(nil), p...):
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped reports how many lines were discarded because the queue was full.
func (w *AsyncWriter) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *AsyncWriter) run() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	defer close(w.closed)
	for {
		select {
		case line := <-w.lines:
			_, _ = w.out.Write(line)
		case <-ticker.C:
			_ = w.out.Flush()
		case <-w.done:
			for {
				select {
				case line := <-w.lines:
					_, _ = w.out.Write(line)
				default:
					_ = w.out.Flush()
					return
				}
			}
		}
	}
}

// Close flushes queued lines and closes the underlying file, if any. It is
// safe to call more than once.
func (w *AsyncWriter) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		<-w.closed
		if w.closer != nil {
			err = w.closer.Close()
		}
	})
	return err
}

// ConsoleHook mirrors every entry to stdout through its own AsyncWriter.
type ConsoleHook struct {
	w *AsyncWriter
}

func NewConsoleHook(queueSize int) *ConsoleHook {
	return &ConsoleHook{w: NewAsyncWriter(os.Stdout, queueSize)}
}

func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return err
	}
	_, err = h.w.Write(line)
	return err
}

func (h *ConsoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *ConsoleHook) Close() error {
	return h.w.Close()
}
