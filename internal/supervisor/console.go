package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

// WaitForSentinel reads r until the most recently read bytes equal sentinel.
//
// The read runs in its own goroutine and is raced against timeout. When the
// deadline wins, ErrPromptTimeout is returned immediately and the reader is
// left blocked; the caller must close the source (for a child process: kill
// it) so the goroutine can finish. Cancelling ctx returns ctx's error.
//
// Bytes read are copied to echo when it is non-nil. No state is carried
// between calls: a partial match from an earlier call never counts.
func WaitForSentinel(ctx context.Context, r io.Reader, sentinel []byte, timeout time.Duration, echo io.Writer) error {
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, ErrPromptTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- readUntil(r, sentinel, echo)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// readUntil reads one byte at a time so nothing past the sentinel is
// consumed.
func readUntil(r io.Reader, sentinel []byte, echo io.Writer) error {
	if len(sentinel) == 0 {
		return nil
	}
	tail := make([]byte, 0, len(sentinel))
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if echo != nil {
				_, _ = echo.Write(buf[:n])
			}
			if len(tail) == len(sentinel) {
				copy(tail, tail[1:])
				tail = tail[:len(tail)-1]
			}
			tail = append(tail, buf[0])
			if bytes.Equal(tail, sentinel) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrConsoleClosed
			}
			return err
		}
	}
}
