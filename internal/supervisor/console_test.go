package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForSentinel_Found(t *testing.T) {
	r := strings.NewReader("SeaBIOS\nBooting...\nkernel> rest")
	var echo bytes.Buffer

	err := WaitForSentinel(context.Background(), r, []byte("> "), time.Second, &echo)
	require.NoError(t, err)
	assert.Equal(t, "SeaBIOS\nBooting...\nkernel> ", echo.String())

	rest, _ := io.ReadAll(r)
	assert.Equal(t, "rest", string(rest), "nothing past the prompt is consumed")
}

func TestWaitForSentinel_SplitAcrossReads(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("kernel>"))
		time.Sleep(20 * time.Millisecond)
		_, _ = pw.Write([]byte(" "))
	}()
	defer pw.Close()

	err := WaitForSentinel(context.Background(), pr, []byte("> "), time.Second, nil)
	assert.NoError(t, err)
}

func TestWaitForSentinel_OverlappingPrefix(t *testing.T) {
	err := WaitForSentinel(context.Background(), strings.NewReader(">>> "), []byte("> "), time.Second, nil)
	assert.NoError(t, err)
}

func TestWaitForSentinel_EOF(t *testing.T) {
	err := WaitForSentinel(context.Background(), strings.NewReader("panic: triple fault\n"), []byte("> "), time.Second, nil)
	assert.ErrorIs(t, err, ErrConsoleClosed)
}

func TestWaitForSentinel_Timeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	start := time.Now()
	err := WaitForSentinel(context.Background(), pr, []byte("> "), 50*time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrPromptTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	// Unblock the abandoned reader.
	_ = pr.Close()
}

func TestWaitForSentinel_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	defer pr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForSentinel(ctx, pr, []byte("> "), time.Second, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWaitForSentinel_EmptySentinel(t *testing.T) {
	err := WaitForSentinel(context.Background(), strings.NewReader(""), nil, time.Second, nil)
	assert.NoError(t, err)
}
