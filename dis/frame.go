package dis

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// RequestType identifies the body schema that follows a request header.
// Every value here is opaque to the framer itself — the codec never
// interprets or skips an unrecognized body, so client and server must agree
// on the schema for a given RequestType out of band.
type RequestType uint16

const (
	ReqConnect RequestType = iota + 1
	ReqDisconnect
	ReqRunJob
	ReqAsyncRunJob
	ReqDeleteJob
	ReqDeleteJobList
	ReqMoveJob
	ReqLocateJob
	ReqModifyJob
	ReqModifyResv
	ReqSubmitResv
	ReqHoldJob
	ReqSignalJob
	ReqMessageJob
	ReqManager
	ReqStatus
	ReqRegisterSched
	ReqRelnodesJob
	ReqPySpawn
	ReqCopyHookFile
	ReqRegister
)

// ReplyCode is the primary result code of a reply envelope.
type ReplyCode uint32

const (
	ReplyOK ReplyCode = 0
)

var (
	// ProtocolV1 and ProtocolV2 are the two protocol versions a conforming
	// implementation recognizes; any other version is rejected at
	// handshake time.
	ProtocolV1 = version.Must(version.NewVersion("1.0.0"))
	ProtocolV2 = version.Must(version.NewVersion("2.0.0"))
)

// SupportedProtocolVersion reports whether v is one of the two recognized
// protocol versions.
func SupportedProtocolVersion(v *version.Version) bool {
	return v.Equal(ProtocolV1) || v.Equal(ProtocolV2)
}

// RequestHeader is the fixed prefix of every request: protocol version,
// request type and acting user name, per spec §6.
type RequestHeader struct {
	ProtocolVersion *version.Version
	Type            RequestType
	User            string
}

const maxUserLen = 256

// EncodeRequestHeader writes the {protocol_version, request_type, user}
// prefix of a request.
func (w *Writer) EncodeRequestHeader(h RequestHeader) {
	major := uint64(1)
	if h.ProtocolVersion != nil && h.ProtocolVersion.Equal(ProtocolV2) {
		major = 2
	}
	w.EncodeUnsigned(major)
	w.EncodeUnsigned(uint64(h.Type))
	w.EncodeString(h.User)
}

// DecodeRequestHeader reads the fixed request prefix. An unrecognized
// protocol version is a protocol-fatal error: the caller should end the
// connection, not retry a different decode.
func (r *Reader) DecodeRequestHeader() (RequestHeader, Status) {
	major, st := r.DecodeUnsigned()
	if st != StatusSuccess {
		return RequestHeader{}, st
	}
	var pv *version.Version
	switch major {
	case 1:
		pv = ProtocolV1
	case 2:
		pv = ProtocolV2
	default:
		return RequestHeader{}, StatusProtocol
	}
	rt, st := r.DecodeUnsigned()
	if st != StatusSuccess {
		return RequestHeader{}, st
	}
	user, st := r.DecodeString(maxUserLen)
	if st != StatusSuccess {
		return RequestHeader{}, st
	}
	return RequestHeader{ProtocolVersion: pv, Type: RequestType(rt), User: user}, StatusSuccess
}

// Extend is the opaque trailer appended to every framed request.
type Extend struct {
	Value string
}

const maxExtendLen = 4096

func (w *Writer) EncodeExtend(e Extend) {
	w.EncodeString(e.Value)
}

func (r *Reader) DecodeExtend() (Extend, Status) {
	v, st := r.DecodeString(maxExtendLen)
	if st != StatusSuccess {
		return Extend{}, st
	}
	return Extend{Value: v}, StatusSuccess
}

// ReplyHeader is the fixed prefix of every reply, per spec §6:
// {code, aux, choice_tag}; Payload is decoded by the caller based on
// ChoiceTag, and EOR is a sentinel confirming the reply was read in full.
type ReplyHeader struct {
	Code      ReplyCode
	Aux       uint32
	ChoiceTag uint32
}

const eorMarker uint64 = 0

func (w *Writer) EncodeReplyHeader(h ReplyHeader) {
	w.EncodeUnsigned(uint64(h.Code))
	w.EncodeUnsigned(uint64(h.Aux))
	w.EncodeUnsigned(uint64(h.ChoiceTag))
}

func (r *Reader) DecodeReplyHeader() (ReplyHeader, Status) {
	code, st := r.DecodeUnsigned()
	if st != StatusSuccess {
		return ReplyHeader{}, st
	}
	aux, st := r.DecodeUnsigned()
	if st != StatusSuccess {
		return ReplyHeader{}, st
	}
	tag, st := r.DecodeUnsigned()
	if st != StatusSuccess {
		return ReplyHeader{}, st
	}
	return ReplyHeader{Code: ReplyCode(code), Aux: uint32(aux), ChoiceTag: uint32(tag)}, StatusSuccess
}

// EncodeEOR writes the end-of-reply sentinel.
func (w *Writer) EncodeEOR() {
	w.EncodeUnsigned(eorMarker)
}

// DecodeEOR reads and validates the end-of-reply sentinel.
func (r *Reader) DecodeEOR() Status {
	v, st := r.DecodeUnsigned()
	if st != StatusSuccess {
		return st
	}
	if v != eorMarker {
		return StatusProtocol
	}
	return StatusSuccess
}

// String renders a RequestType for logging.
func (t RequestType) String() string {
	names := map[RequestType]string{
		ReqConnect: "Connect", ReqDisconnect: "Disconnect", ReqRunJob: "RunJob",
		ReqAsyncRunJob: "AsyncRunJob", ReqDeleteJob: "DeleteJob", ReqDeleteJobList: "DeleteJobList",
		ReqMoveJob: "MoveJob", ReqLocateJob: "LocateJob", ReqModifyJob: "ModifyJob",
		ReqModifyResv: "ModifyResv", ReqSubmitResv: "SubmitResv", ReqHoldJob: "HoldJob",
		ReqSignalJob: "SignalJob", ReqMessageJob: "MessageJob", ReqManager: "Manager",
		ReqStatus: "Status", ReqRegisterSched: "RegisterSched", ReqRelnodesJob: "RelnodesJob",
		ReqPySpawn: "PySpawn", ReqCopyHookFile: "CopyHookFile", ReqRegister: "Register",
	}
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("RequestType(%d)", uint16(t))
}
