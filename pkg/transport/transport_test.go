package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New(KindPipe, "/tmp/pcapbend.fifo")
	require.NoError(t, err)
	assert.IsType(t, &PipeSender{}, s)
	assert.Equal(t, "/tmp/pcapbend.fifo", s.(*PipeSender).Path)

	s, err = New(KindTCP, "127.0.0.1:0")
	require.NoError(t, err)
	assert.IsType(t, &TCPSender{}, s)

	_, err = New("carrier-pigeon", "coop")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = New(KindPipe, "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
