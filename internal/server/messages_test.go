package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_serializeMessage(t *testing.T) {
	tcases := []struct {
		name     string
		msg      *ServerMessage
		expected string
	}{
		{
			name:     "connected",
			msg:      NewConnected("conn-a"),
			expected: `{"event":"connected","data":{"id":"conn-a"}}`,
		},
		{
			name:     "presence",
			msg:      NewPresenceChanged("alice@example.com", false),
			expected: `{"event":"user-list-updated","data":{"email":"alice@example.com","online":false}}`,
		},
		{
			name:     "received keeps payload verbatim",
			msg:      NewReceived(json.RawMessage(`{"text":"hi","n":[1,2,3]}`), "conn-a"),
			expected: `{"event":"recieve-message","data":{"message":{"text":"hi","n":[1,2,3]},"from":"conn-a"}}`,
		},
		{
			name:     "error",
			msg:      ErrUnknownEvent(),
			expected: `{"event":"error","data":{"error":"unknown event"}}`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			bytes, err := serializeMessage(tc.msg)
			require.NoError(t, err, "expected no error during serialization")
			assert.JSONEq(t, tc.expected, string(bytes))
		})
	}
}
