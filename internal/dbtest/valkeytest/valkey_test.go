package valkeytest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
)

func TestMustConnect_PanicsWithoutClient(t *testing.T) {
	var recovered any
	func() {
		defer func() { recovered = recover() }()

		client := mustConnect(t.Context())
		t.Errorf("mustConnect() returned %v, want panic", client)
	}()

	require.NotNil(t, recovered, "mustConnect() did not panic")
	err, ok := recovered.(error)
	require.True(t, ok, "panic value %v is not an error", recovered)
	assert.ErrorIs(t, err, valkey.ErrNoAddr)
}
