package domain

import "strings"

// MethodRegister binds a connection to an identity.
const MethodRegister = "REGISTER"

type (
	Status string
	Reason string
)

const (
	StatusOK          Status = "200"
	StatusBadRequest  Status = "400"
	StatusRateLimited Status = "429"
)

const (
	ReasonOK                Reason = "OK"
	ReasonJSON              Reason = "json"
	ReasonNoMethod          Reason = "no-method"
	ReasonAlreadyRegistered Reason = "already-registered"
	ReasonNoFrom            Reason = "no-from"
	ReasonEmptyFrom         Reason = "empty-from"
	ReasonNotRegistered     Reason = "not-registered"
	ReasonBadFrom           Reason = "bad-from"
	ReasonOneself           Reason = "oneself-forbidden"
	ReasonPeerUnavailable   Reason = "peer-unavailable"
	ReasonRateLimited       Reason = "rate-limited"
)

// ReplyCode is the synthetic method of a reply: "<method>/<status>/<reason>",
// or "<status>/<reason>" when the frame carried no usable method.
type ReplyCode string

func NewReplyCode(method string, status Status, reason Reason) ReplyCode {
	return ReplyCode(method + "/" + string(status) + "/" + string(reason))
}

func NewBareReplyCode(status Status, reason Reason) ReplyCode {
	return ReplyCode(string(status) + "/" + string(reason))
}

// Well-known codes that do not depend on the request method.
var (
	CodeJSON              = NewBareReplyCode(StatusBadRequest, ReasonJSON)
	CodeNoMethod          = NewBareReplyCode(StatusBadRequest, ReasonNoMethod)
	CodeRegisterOK        = NewReplyCode(MethodRegister, StatusOK, ReasonOK)
	CodeAlreadyRegistered = NewReplyCode(MethodRegister, StatusOK, ReasonAlreadyRegistered)
	CodeRegisterNoFrom    = NewReplyCode(MethodRegister, StatusBadRequest, ReasonNoFrom)
	CodeRegisterEmptyFrom = NewReplyCode(MethodRegister, StatusBadRequest, ReasonEmptyFrom)
)

// Status extracts the status segment, e.g. "400" from "INVITE/400/bad-from".
func (c ReplyCode) Status() Status {
	parts := strings.Split(string(c), "/")
	if len(parts) < 2 {
		return ""
	}
	return Status(parts[len(parts)-2])
}

// Reason is the last segment, e.g. "bad-from".
func (c ReplyCode) Reason() Reason {
	i := strings.LastIndexByte(string(c), '/')
	if i < 0 {
		return ""
	}
	return Reason(c[i+1:])
}

func (c ReplyCode) IsError() bool { return c.Status() != StatusOK }

// Reply is the wire shape of every synthesized message.
type Reply struct {
	Method ReplyCode `json:"method"`
}
