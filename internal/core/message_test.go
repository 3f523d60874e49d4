package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Reflector/internal/domain"
)

func decodeErrCode(t *testing.T, err error) domain.ReplyCode {
	t.Helper()
	var de *DecodeError
	require.True(t, errors.As(err, &de), "expected *DecodeError, got %v", err)
	return de.Code
}

func TestDecodeRequest_Malformed(t *testing.T) {
	for _, in := range []string{"", "{", "not json", `{"method":`, "null", "[1,2]", `"REGISTER"`, "42"} {
		t.Run(in, func(t *testing.T) {
			req, err := DecodeRequest(Frame(in))
			assert.Nil(t, req)
			assert.Equal(t, domain.CodeJSON, decodeErrCode(t, err))
		})
	}
}

func TestDecodeRequest_InvalidUTF8(t *testing.T) {
	for _, in := range []string{
		"{\"method\":\"INVITE\",\"from\":\"alice\",\"to\":\"bob\",\"sdp\":\"\xff\xfe\"}",
		"{\"method\":\"REGISTER\",\"from\":\"al\xc3\"}",
	} {
		req, err := DecodeRequest(Frame(in))
		assert.Nil(t, req)
		assert.Equal(t, domain.CodeJSON, decodeErrCode(t, err))
		assert.ErrorIs(t, err, ErrInvalidUTF8)
	}

	req, err := DecodeRequest(Frame(`{"method":"INVITE","from":"алиса","to":"bob"}`))
	require.NoError(t, err)
	assert.Equal(t, "алиса", req.(*RoutedMessage).From)
}

func TestDecodeRequest_NoMethod(t *testing.T) {
	for _, in := range []string{`{}`, `{"from":"a"}`, `{"method":null}`, `{"method":7}`} {
		t.Run(in, func(t *testing.T) {
			_, err := DecodeRequest(Frame(in))
			assert.Equal(t, domain.CodeNoMethod, decodeErrCode(t, err))
		})
	}
}

func TestDecodeRequest_Register(t *testing.T) {
	cases := []struct {
		in      string
		from    string
		hasFrom bool
	}{
		{`{"method":"REGISTER","from":"alice"}`, "alice", true},
		{`{"method":"REGISTER","from":""}`, "", true},
		{`{"method":"REGISTER"}`, "", false},
		{`{"method":"REGISTER","from":null}`, "", false},
		{`{"method":"REGISTER","from":12}`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			req, err := DecodeRequest(Frame(tc.in))
			require.NoError(t, err)
			reg, ok := req.(*RegisterRequest)
			require.True(t, ok)
			assert.Equal(t, tc.from, reg.From)
			assert.Equal(t, tc.hasFrom, reg.HasFrom)
			assert.Equal(t, domain.MethodRegister, reg.RequestMethod())
		})
	}
}

func TestDecodeRequest_Routed(t *testing.T) {
	in := `{"method":"INVITE","from":"alice","to":"bob","sdp":{"type":"offer","sdp":"v=0"},"extra":[1,2]}`
	req, err := DecodeRequest(Frame(in))
	require.NoError(t, err)

	msg, ok := req.(*RoutedMessage)
	require.True(t, ok)
	assert.Equal(t, "INVITE", msg.RequestMethod())
	assert.Equal(t, "alice", msg.From)
	assert.True(t, msg.HasFrom)
	assert.Equal(t, "bob", msg.To)
	assert.True(t, msg.HasTo)
	assert.Equal(t, in, string(msg.Raw))
}

func TestDecodeRequest_RoutedFieldPresence(t *testing.T) {
	req, err := DecodeRequest(Frame(`{"method":"BYE"}`))
	require.NoError(t, err)
	msg := req.(*RoutedMessage)
	assert.False(t, msg.HasFrom)
	assert.False(t, msg.HasTo)

	// present but not a string still counts as present
	req, err = DecodeRequest(Frame(`{"method":"BYE","from":1,"to":null}`))
	require.NoError(t, err)
	msg = req.(*RoutedMessage)
	assert.True(t, msg.HasFrom)
	assert.Equal(t, "", msg.From)
	assert.True(t, msg.HasTo)
	assert.Equal(t, "", msg.To)
}

func TestDecodeRequest_RegisterIsCaseSensitive(t *testing.T) {
	req, err := DecodeRequest(Frame(`{"method":"register","from":"alice"}`))
	require.NoError(t, err)
	_, ok := req.(*RoutedMessage)
	assert.True(t, ok)
}
