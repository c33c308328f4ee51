package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunIDGenerator(t *testing.T) {
	gen := NewFixedRunIDGenerator("run-1")
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}

func TestStepClock(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewStepClock(start, time.Second)
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())
}

func TestHelperArgs(t *testing.T) {
	assert.Equal(t, []string{"-nographic", "x"}, HelperArgs([]string{"bin", "-test.run=X", "--", "-nographic", "x"}))
	assert.Nil(t, HelperArgs([]string{"bin"}))
}

func TestSerialLogPath(t *testing.T) {
	args := []string{"-nographic", "-serial", "mon:stdio", "-serial", "file:/tmp/k.log", "-cdrom", "os.iso"}
	assert.Equal(t, "/tmp/k.log", serialLogPath(args))
	assert.Equal(t, "", serialLogPath([]string{"-serial"}))
}
