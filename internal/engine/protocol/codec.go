package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"FlowSpectra/internal/model"
)

// RecordSize is the fixed wire size of one record: packed, little-endian,
// fields in declaration order.
const RecordSize = 111

// ErrMalformedPayload is returned for payloads that are empty or not an exact
// multiple of RecordSize.
var ErrMalformedPayload = errors.New("malformed record payload")

var le = binary.LittleEndian

// Encode writes r into dst, which must hold at least RecordSize bytes.
func Encode(r *model.Record, dst []byte) {
	_ = dst[RecordSize-1]
	le.PutUint32(dst[0:], r.ID)
	off := 4
	for _, f := range [...]float32{r.Dur, r.Rate, r.Sload, r.Dload, r.Sinpkt, r.Dinpkt, r.Sjit, r.Djit, r.Tcprtt, r.Synack, r.Ackdat} {
		le.PutUint32(dst[off:], math.Float32bits(f))
		off += 4
	}
	le.PutUint16(dst[off:], r.Spkts)
	le.PutUint16(dst[off+2:], r.Dpkts)
	le.PutUint32(dst[off+4:], r.Sbytes)
	le.PutUint32(dst[off+8:], r.Dbytes)
	dst[off+12] = r.Sttl
	dst[off+13] = r.Dttl
	off += 14
	for _, v := range [...]uint16{r.Sloss, r.Dloss, r.Swin, r.Stcpb, r.Dtcpb, r.Dwin, r.Smean, r.Dmean, r.TransDepth} {
		le.PutUint16(dst[off:], v)
		off += 2
	}
	le.PutUint32(dst[off:], r.ResponseBodyLen)
	off += 4
	for _, v := range [...]uint16{r.CtSrvSrc, r.CtStateTTL, r.CtDstLtm, r.CtSrcDportLtm, r.CtDstSportLtm,
		r.CtDstSrcLtm, r.CtFtpCmd, r.CtFlwHTTPMthd, r.CtSrcLtm, r.CtSrvDst} {
		le.PutUint16(dst[off:], v)
		off += 2
	}
	dst[off] = boolByte(r.IsFtpLogin)
	dst[off+1] = boolByte(r.IsSmIpsPorts)
	dst[off+2] = boolByte(r.Label)
	dst[off+3] = byte(r.Proto)
	dst[off+4] = byte(r.State)
	dst[off+5] = byte(r.AttackCat)
	dst[off+6] = byte(r.Service)
}

// Decode reads one record from src, which must hold exactly RecordSize bytes.
func Decode(src []byte) (model.Record, error) {
	if len(src) != RecordSize {
		return model.Record{}, fmt.Errorf("%w: record is %d bytes, want %d", ErrMalformedPayload, len(src), RecordSize)
	}
	var r model.Record
	r.ID = le.Uint32(src[0:])
	off := 4
	for _, f := range [...]*float32{&r.Dur, &r.Rate, &r.Sload, &r.Dload, &r.Sinpkt, &r.Dinpkt, &r.Sjit, &r.Djit, &r.Tcprtt, &r.Synack, &r.Ackdat} {
		*f = math.Float32frombits(le.Uint32(src[off:]))
		off += 4
	}
	r.Spkts = le.Uint16(src[off:])
	r.Dpkts = le.Uint16(src[off+2:])
	r.Sbytes = le.Uint32(src[off+4:])
	r.Dbytes = le.Uint32(src[off+8:])
	r.Sttl = src[off+12]
	r.Dttl = src[off+13]
	off += 14
	for _, v := range [...]*uint16{&r.Sloss, &r.Dloss, &r.Swin, &r.Stcpb, &r.Dtcpb, &r.Dwin, &r.Smean, &r.Dmean, &r.TransDepth} {
		*v = le.Uint16(src[off:])
		off += 2
	}
	r.ResponseBodyLen = le.Uint32(src[off:])
	off += 4
	for _, v := range [...]*uint16{&r.CtSrvSrc, &r.CtStateTTL, &r.CtDstLtm, &r.CtSrcDportLtm, &r.CtDstSportLtm,
		&r.CtDstSrcLtm, &r.CtFtpCmd, &r.CtFlwHTTPMthd, &r.CtSrcLtm, &r.CtSrvDst} {
		*v = le.Uint16(src[off:])
		off += 2
	}
	r.IsFtpLogin = src[off] != 0
	r.IsSmIpsPorts = src[off+1] != 0
	r.Label = src[off+2] != 0
	r.Proto = model.Protocol(src[off+3])
	r.State = model.State(src[off+4])
	r.AttackCat = model.AttackCategory(src[off+5])
	r.Service = model.Service(src[off+6])
	return r, nil
}

// EncodeBatch serializes records back to back.
func EncodeBatch(records []model.Record) []byte {
	out := make([]byte, len(records)*RecordSize)
	for i := range records {
		Encode(&records[i], out[i*RecordSize:])
	}
	return out
}

// DecodeBatch parses a payload of back-to-back records. A payload whose
// length is not an exact multiple of RecordSize is rejected whole.
func DecodeBatch(payload []byte) ([]model.Record, error) {
	if len(payload) == 0 || len(payload)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: payload is %d bytes, not a multiple of %d", ErrMalformedPayload, len(payload), RecordSize)
	}
	n := len(payload) / RecordSize
	out := make([]model.Record, n)
	for i := 0; i < n; i++ {
		r, err := Decode(payload[i*RecordSize : (i+1)*RecordSize])
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// StripPrefix removes a "<prefix> " frame from payload. With an empty prefix
// the payload is returned unchanged; a payload without the frame is rejected.
func StripPrefix(payload []byte, prefix string) ([]byte, bool) {
	if prefix == "" {
		return payload, true
	}
	if len(payload) <= len(prefix) || payload[len(prefix)] != ' ' || !bytes.HasPrefix(payload, []byte(prefix)) {
		return nil, false
	}
	return payload[len(prefix)+1:], true
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
