package model

import "math/rand/v2"

// Synthesize builds a plausible record with the given id from rng. It feeds
// the publish command and tests.
func Synthesize(id uint32, rng *rand.Rand) Record {
	attack := rng.IntN(4) == 0
	cat := AttackNormal
	if attack {
		cat = AttackCategory(1 + rng.IntN(NumAttackCategories-1))
	}
	spkts := uint16(1 + rng.IntN(400))
	dpkts := uint16(rng.IntN(400))
	smean := uint16(40 + rng.IntN(1460))
	dmean := uint16(rng.IntN(1500))
	return Record{
		ID:              id,
		Dur:             rng.Float32() * 60,
		Rate:            rng.Float32() * 100000,
		Sload:           rng.Float32() * 1e8,
		Dload:           rng.Float32() * 1e7,
		Sinpkt:          rng.Float32() * 100,
		Dinpkt:          rng.Float32() * 100,
		Sjit:            rng.Float32() * 5000,
		Djit:            rng.Float32() * 5000,
		Tcprtt:          rng.Float32() * 0.3,
		Synack:          rng.Float32() * 0.15,
		Ackdat:          rng.Float32() * 0.15,
		Spkts:           spkts,
		Dpkts:           dpkts,
		Sbytes:          uint32(spkts) * uint32(smean),
		Dbytes:          uint32(dpkts) * uint32(dmean),
		Sttl:            uint8([]int{31, 62, 254}[rng.IntN(3)]),
		Dttl:            uint8([]int{0, 29, 252}[rng.IntN(3)]),
		Sloss:           uint16(rng.IntN(10)),
		Dloss:           uint16(rng.IntN(10)),
		Swin:            uint16(rng.IntN(2)) * 255,
		Stcpb:           uint16(rng.Uint32()),
		Dtcpb:           uint16(rng.Uint32()),
		Dwin:            uint16(rng.IntN(2)) * 255,
		Smean:           smean,
		Dmean:           dmean,
		TransDepth:      uint16(rng.IntN(3)),
		ResponseBodyLen: uint32(rng.IntN(1 << 16)),
		CtSrvSrc:        uint16(1 + rng.IntN(60)),
		CtStateTTL:      uint16(rng.IntN(6)),
		CtDstLtm:        uint16(1 + rng.IntN(50)),
		CtSrcDportLtm:   uint16(1 + rng.IntN(50)),
		CtDstSportLtm:   uint16(1 + rng.IntN(40)),
		CtDstSrcLtm:     uint16(1 + rng.IntN(60)),
		CtFtpCmd:        uint16(rng.IntN(2)),
		CtFlwHTTPMthd:   uint16(rng.IntN(4)),
		CtSrcLtm:        uint16(1 + rng.IntN(50)),
		CtSrvDst:        uint16(1 + rng.IntN(60)),
		IsFtpLogin:      rng.IntN(20) == 0,
		IsSmIpsPorts:    rng.IntN(50) == 0,
		Label:           attack,
		Proto:           Protocol(rng.IntN(NumProtocols)),
		State:           State(rng.IntN(NumStates)),
		AttackCat:       cat,
		Service:         Service(rng.IntN(NumServices)),
	}
}
