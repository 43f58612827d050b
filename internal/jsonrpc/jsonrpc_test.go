package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse_PreservesID(t *testing.T) {
	tests := []struct {
		name string
		id   json.RawMessage
		want string
	}{
		{"number id", json.RawMessage(`7`), `7`},
		{"string id", json.RawMessage(`"abc"`), `"abc"`},
		{"null id", json.RawMessage(`null`), `null`},
		{"missing id", nil, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ErrorResponse(tt.id, ErrTooManyRequests)

			data, err := json.Marshal(resp)
			require.NoError(t, err)

			var decoded map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.JSONEq(t, tt.want, string(decoded["id"]))
		})
	}
}

func TestErrTooManyRequests_WireFormat(t *testing.T) {
	resp := ErrorResponse(json.RawMessage(`2`), ErrTooManyRequests)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"error":{"code":429,"message":"Too many requests"}}`, string(data))
}

func TestResultResponse(t *testing.T) {
	resp, err := ResultResponse(json.RawMessage(`1`), map[string]bool{"ok": true})
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`, string(data))
}

func TestRequest_IsNotification(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"ping"}`), &req))
	assert.True(t, req.IsNotification())

	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), &req))
	assert.False(t, req.IsNotification())
}

func TestParseMessage_Single(t *testing.T) {
	reqs, batch, err := ParseMessage([]byte(`{"jsonrpc":"2.0","id":1,"method":"system_health"}`))
	require.NoError(t, err)
	assert.False(t, batch)
	require.Len(t, reqs, 1)
	assert.Equal(t, "system_health", reqs[0].Method)
}

func TestParseMessage_Batch(t *testing.T) {
	frame := `[
		{"jsonrpc":"2.0","id":1,"method":"system_health"},
		{"jsonrpc":"2.0","id":2,"method":"system_version"}
	]`

	reqs, batch, err := ParseMessage([]byte(frame))
	require.NoError(t, err)
	assert.True(t, batch)
	assert.Len(t, reqs, 2)
}

func TestParseMessage_LeadingWhitespaceBatch(t *testing.T) {
	_, batch, err := ParseMessage([]byte("\n\t [{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"m\"}]"))
	require.NoError(t, err)
	assert.True(t, batch)
}

func TestParseMessage_EmptyBatch(t *testing.T) {
	_, batch, err := ParseMessage([]byte(`[]`))
	assert.True(t, batch)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestParseMessage_Malformed(t *testing.T) {
	_, _, err := ParseMessage([]byte(`{"jsonrpc":`))
	assert.Error(t, err)
}
