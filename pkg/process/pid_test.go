package process

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFileRoundTrip(t *testing.T) {
	t.Parallel()

	name := "pid-test-roundtrip"
	t.Cleanup(func() { _ = RemovePIDFile(name) })

	require.NoError(t, WritePIDFile(name, 12345))

	pid, err := ReadPIDFile(name)
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)

	require.NoError(t, RemovePIDFile(name))

	_, err = ReadPIDFile(name)
	assert.Error(t, err)
}

func TestWriteCurrentPIDFile(t *testing.T) {
	t.Parallel()

	name := "pid-test-current"
	t.Cleanup(func() { _ = RemovePIDFile(name) })

	require.NoError(t, WriteCurrentPIDFile(name))

	pid, err := ReadPIDFile(name)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestReadPIDFileMalformed(t *testing.T) {
	t.Parallel()

	name := "pid-test-malformed"
	t.Cleanup(func() { _ = RemovePIDFile(name) })

	require.NoError(t, os.WriteFile(GetPIDFilePath(name), []byte("not-a-pid"), 0600))

	_, err := ReadPIDFile(name)
	assert.Error(t, err)
}

func TestRemovePIDFileMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, RemovePIDFile("pid-test-never-written"))
}
