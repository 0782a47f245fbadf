package model

// Record is a single network-flow observation. Records are created once at
// ingestion and never mutated afterwards; every index holds a Ref to the copy
// owned by the store.
type Record struct {
	ID uint32

	Dur    float32 // flow duration, seconds
	Rate   float32 // packets per second
	Sload  float32 // source bits per second
	Dload  float32 // destination bits per second
	Sinpkt float32
	Dinpkt float32
	Sjit   float32
	Djit   float32
	Tcprtt float32
	Synack float32
	Ackdat float32

	Spkts  uint16
	Dpkts  uint16
	Sbytes uint32
	Dbytes uint32

	Sttl uint8
	Dttl uint8

	Sloss      uint16
	Dloss      uint16
	Swin       uint16
	Stcpb      uint16
	Dtcpb      uint16
	Dwin       uint16
	Smean      uint16
	Dmean      uint16
	TransDepth uint16

	ResponseBodyLen uint32

	CtSrvSrc      uint16
	CtStateTTL    uint16
	CtDstLtm      uint16
	CtSrcDportLtm uint16
	CtDstSportLtm uint16
	CtDstSrcLtm   uint16
	CtFtpCmd      uint16
	CtFlwHTTPMthd uint16
	CtSrcLtm      uint16
	CtSrvDst      uint16

	IsFtpLogin   bool
	IsSmIpsPorts bool
	Label        bool // true for attack traffic

	Proto     Protocol
	State     State
	AttackCat AttackCategory
	Service   Service
}
