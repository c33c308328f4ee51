package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kerntest/internal/testutil"
)

func TestParseQEMUVersion(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"debian", "QEMU emulator version 8.2.2 (Debian 1:8.2.2+ds-0ubuntu1)\n", "8.2.2"},
		{"plain", "QEMU emulator version 6.0.0\nCopyright", "6.0.0"},
		{"two part", "QEMU emulator version 2.11", "2.11.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseQEMUVersion(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestParseQEMUVersion_Garbage(t *testing.T) {
	_, err := ParseQEMUVersion("command not found")
	assert.ErrorIs(t, err, ErrVersion)
}

func TestCheckVersion_Empty(t *testing.T) {
	v, err := CheckVersion(context.Background(), Options{Binary: "/nonexistent"}, "")
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestCheckVersion_FakeBinary(t *testing.T) {
	bin, leading, env := testutil.HelperCommand(testutil.ScenarioReady)
	o := Options{Binary: bin, LeadingArgs: leading, Env: env}

	v, err := CheckVersion(context.Background(), o, "6.0")
	require.NoError(t, err)
	assert.Equal(t, "8.2.2", v.String())

	v, err = CheckVersion(context.Background(), o, "9.1")
	assert.ErrorIs(t, err, ErrVersion)
	require.NotNil(t, v)
	assert.Equal(t, "8.2.2", v.String())
}

func TestCheckVersion_InvalidMinimum(t *testing.T) {
	_, err := CheckVersion(context.Background(), Options{Binary: "qemu"}, "not-a-version")
	assert.Error(t, err)
}

func TestCheckVersion_MissingBinary(t *testing.T) {
	_, err := CheckVersion(context.Background(), Options{Binary: "/nonexistent/qemu-system-i386"}, "6.0")
	assert.ErrorIs(t, err, ErrVersion)
}
