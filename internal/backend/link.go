// Package backend owns the pop-launcher child process and bridges its three
// standard streams into a request method and a single event channel.
package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"

	"github.com/chess10kp/poplaunch/internal/protocol"
)

const (
	// queueSize bounds both the request queue and the event channel.
	queueSize = 32
	// maxLineSize is the longest stdout frame accepted from the backend.
	maxLineSize = 1024 * 1024
	// quoteSize is how much of an oversized frame a ProtocolError keeps.
	quoteSize = 64
)

// ErrBackendClosed is reported once the backend stops accepting requests or
// closes its stdout. The session cannot continue after it.
var ErrBackendClosed = errors.New("backend connection closed")

// ErrFrameTooLong marks a stdout line longer than maxLineSize. The line is
// skipped and reading continues with the next one.
var ErrFrameTooLong = errors.New("frame too long")

// ProtocolError describes a stdout line that could not be decoded.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed backend frame %q: %v", e.Line, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Event carries either a decoded response or an error from the link.
type Event struct {
	Response *protocol.Response
	Err      error
}

// Link is a running backend connection.
type Link struct {
	cmd *exec.Cmd

	ctx    context.Context
	cancel context.CancelFunc

	requests chan protocol.Request
	events   chan Event

	wg         sync.WaitGroup
	stderrDone chan struct{}
	finished   chan struct{}
	failOnce   sync.Once
	closeMu    sync.Once
}

// Start spawns the backend and starts the stdin writer, stdout reader and
// stderr reader goroutines.
func Start(ctx context.Context, command string, args ...string) (*Link, error) {
	cmd := exec.Command(command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to start backend %q: %w", command, err)
	}

	log.Printf("[BACKEND] Started %s (pid %d)", command, cmd.Process.Pid)

	return newLink(ctx, cmd, stdin, stdout, stderr), nil
}

// newLink wires the goroutines around already-open streams. cmd may be nil
// when the streams are not backed by a process.
func newLink(ctx context.Context, cmd *exec.Cmd, stdin io.WriteCloser, stdout, stderr io.Reader) *Link {
	ctx, cancel := context.WithCancel(ctx)
	l := &Link{
		cmd:        cmd,
		ctx:        ctx,
		cancel:     cancel,
		requests:   make(chan protocol.Request, queueSize),
		events:     make(chan Event, queueSize),
		stderrDone: make(chan struct{}),
		finished:   make(chan struct{}),
	}

	l.wg.Add(2)
	go l.writeLoop(stdin)
	go l.readLoop(stdout)
	if stderr != nil {
		go l.logLoop(stderr)
	} else {
		close(l.stderrDone)
	}

	go func() {
		l.wg.Wait()
		close(l.events)
		// Wait closes the pipes, so stderr has to be drained first
		<-l.stderrDone
		if l.cmd != nil {
			if err := l.cmd.Wait(); err != nil {
				log.Printf("[BACKEND] Process exited: %v", err)
			}
		}
		close(l.finished)
	}()

	return l
}

// Events returns the stream of responses and link errors. It is closed after
// the link shuts down.
func (l *Link) Events() <-chan Event {
	return l.events
}

// Send queues a request. It blocks while the queue is full.
func (l *Link) Send(ctx context.Context, req protocol.Request) error {
	select {
	case <-l.ctx.Done():
		return ErrBackendClosed
	default:
	}

	select {
	case l.requests <- req:
		return nil
	case <-l.ctx.Done():
		return ErrBackendClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the goroutines, closes the backend's stdin and kills the
// process so a hung backend cannot hold up exit.
func (l *Link) Close() error {
	l.closeMu.Do(func() {
		l.cancel()
		if l.cmd != nil && l.cmd.Process != nil {
			_ = l.cmd.Process.Kill()
		}
	})
	<-l.finished
	return nil
}

func (l *Link) writeLoop(stdin io.WriteCloser) {
	defer l.wg.Done()
	defer stdin.Close()

	w := bufio.NewWriter(stdin)
	for {
		select {
		case <-l.ctx.Done():
			return
		case req := <-l.requests:
			frame, err := protocol.EncodeRequest(req)
			if err != nil {
				log.Printf("[BACKEND] Dropping unencodable request %v: %v", req.Kind, err)
				continue
			}
			_, err = w.Write(frame)
			if err == nil {
				err = w.Flush()
			}
			if err != nil {
				log.Printf("[BACKEND] Write to backend failed: %v", err)
				l.fail(fmt.Errorf("%w: %v", ErrBackendClosed, err))
				return
			}
		}
	}
}

func (l *Link) readLoop(stdout io.Reader) {
	defer l.wg.Done()

	r := bufio.NewReaderSize(stdout, 64*1024)
	for {
		line, err := readFrame(r, maxLineSize)
		var evt Event
		switch {
		case errors.Is(err, ErrFrameTooLong):
			log.Printf("[BACKEND] Skipping oversized frame starting %q", line)
			evt = Event{Err: &ProtocolError{Line: string(line), Err: err}}
		case errors.Is(err, io.EOF):
			l.fail(ErrBackendClosed)
			return
		case err != nil:
			log.Printf("[BACKEND] Reading backend stdout failed: %v", err)
			l.fail(fmt.Errorf("%w: %v", ErrBackendClosed, err))
			return
		case len(line) == 0:
			continue
		default:
			resp, err := protocol.DecodeResponse(line)
			if err != nil {
				evt = Event{Err: &ProtocolError{Line: string(line), Err: err}}
			} else {
				evt = Event{Response: &resp}
			}
		}

		select {
		case l.events <- evt:
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *Link) logLoop(stderr io.Reader) {
	defer close(l.stderrDone)

	r := bufio.NewReaderSize(stderr, 4096)
	for {
		line, err := readFrame(r, maxLineSize)
		if len(line) > 0 {
			log.Printf("[BACKEND-STDERR] %s", line)
		}
		if err != nil && !errors.Is(err, ErrFrameTooLong) {
			return
		}
	}
}

// readFrame returns the next line from r without its line ending. A final
// line missing its newline is still returned. A line longer than max is
// consumed up to its newline and reported as ErrFrameTooLong together with
// its first quoteSize bytes.
func readFrame(r *bufio.Reader, max int) ([]byte, error) {
	var frame []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			frame = append(frame, chunk...)
			if len(bytes.TrimRight(frame, "\r\n")) > max {
				tooLong = true
				if len(frame) > quoteSize {
					frame = frame[:quoteSize]
				}
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case tooLong:
			return frame, ErrFrameTooLong
		case err == nil:
			return bytes.TrimRight(frame, "\r\n"), nil
		case errors.Is(err, io.EOF) && len(frame) > 0:
			return bytes.TrimRight(frame, "\r\n"), nil
		default:
			return nil, err
		}
	}
}

// fail reports a terminal error and shuts the link down. Only the first
// caller's error reaches the event stream.
func (l *Link) fail(err error) {
	l.failOnce.Do(func() {
		select {
		case l.events <- Event{Err: err}:
		case <-l.ctx.Done():
		}
		l.cancel()
	})
}
