package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFeature is returned when a feature name does not match any numeric field.
var ErrUnknownFeature = errors.New("unknown feature")

// Feature names a numeric field of a Record usable in window statistics.
type Feature uint8

const (
	FeatureDur Feature = iota
	FeatureRate
	FeatureSload
	FeatureDload
	FeatureSinpkt
	FeatureDinpkt
	FeatureSjit
	FeatureDjit
	FeatureTcprtt
	FeatureSynack
	FeatureAckdat
	FeatureSpkts
	FeatureDpkts
	FeatureSbytes
	FeatureDbytes
	FeatureSttl
	FeatureDttl
	FeatureSloss
	FeatureDloss
	FeatureSwin
	FeatureDwin
	FeatureSmean
	FeatureDmean
	FeatureTransDepth
	FeatureResponseBodyLen
	FeatureCtSrvSrc
	FeatureCtStateTTL
	FeatureCtDstLtm
	FeatureCtSrcDportLtm
	FeatureCtDstSportLtm
	FeatureCtDstSrcLtm
	FeatureCtFtpCmd
	FeatureCtFlwHTTPMthd
	FeatureCtSrcLtm
	FeatureCtSrvDst
	numFeatures
)

var featureNames = [numFeatures]string{
	"dur", "rate", "sload", "dload", "sinpkt", "dinpkt", "sjit", "djit",
	"tcprtt", "synack", "ackdat", "spkts", "dpkts", "sbytes", "dbytes",
	"sttl", "dttl", "sloss", "dloss", "swin", "dwin", "smean", "dmean",
	"trans_depth", "response_body_len", "ct_srv_src", "ct_state_ttl",
	"ct_dst_ltm", "ct_src_dport_ltm", "ct_dst_sport_ltm", "ct_dst_src_ltm",
	"ct_ftp_cmd", "ct_flw_http_mthd", "ct_src_ltm", "ct_srv_dst",
}

func (f Feature) String() string {
	if f < numFeatures {
		return featureNames[f]
	}
	return fmt.Sprintf("feature(%d)", uint8(f))
}

// ParseFeature maps a field name such as "rate" or "ct_srv_src" to its Feature.
func ParseFeature(s string) (Feature, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range featureNames {
		if name == s {
			return Feature(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFeature, s)
}

// Features returns every defined feature in declaration order.
func Features() []Feature {
	out := make([]Feature, numFeatures)
	for i := range out {
		out[i] = Feature(i)
	}
	return out
}

// Value extracts the feature from r as a float64.
func (f Feature) Value(r *Record) float64 {
	switch f {
	case FeatureDur:
		return float64(r.Dur)
	case FeatureRate:
		return float64(r.Rate)
	case FeatureSload:
		return float64(r.Sload)
	case FeatureDload:
		return float64(r.Dload)
	case FeatureSinpkt:
		return float64(r.Sinpkt)
	case FeatureDinpkt:
		return float64(r.Dinpkt)
	case FeatureSjit:
		return float64(r.Sjit)
	case FeatureDjit:
		return float64(r.Djit)
	case FeatureTcprtt:
		return float64(r.Tcprtt)
	case FeatureSynack:
		return float64(r.Synack)
	case FeatureAckdat:
		return float64(r.Ackdat)
	case FeatureSpkts:
		return float64(r.Spkts)
	case FeatureDpkts:
		return float64(r.Dpkts)
	case FeatureSbytes:
		return float64(r.Sbytes)
	case FeatureDbytes:
		return float64(r.Dbytes)
	case FeatureSttl:
		return float64(r.Sttl)
	case FeatureDttl:
		return float64(r.Dttl)
	case FeatureSloss:
		return float64(r.Sloss)
	case FeatureDloss:
		return float64(r.Dloss)
	case FeatureSwin:
		return float64(r.Swin)
	case FeatureDwin:
		return float64(r.Dwin)
	case FeatureSmean:
		return float64(r.Smean)
	case FeatureDmean:
		return float64(r.Dmean)
	case FeatureTransDepth:
		return float64(r.TransDepth)
	case FeatureResponseBodyLen:
		return float64(r.ResponseBodyLen)
	case FeatureCtSrvSrc:
		return float64(r.CtSrvSrc)
	case FeatureCtStateTTL:
		return float64(r.CtStateTTL)
	case FeatureCtDstLtm:
		return float64(r.CtDstLtm)
	case FeatureCtSrcDportLtm:
		return float64(r.CtSrcDportLtm)
	case FeatureCtDstSportLtm:
		return float64(r.CtDstSportLtm)
	case FeatureCtDstSrcLtm:
		return float64(r.CtDstSrcLtm)
	case FeatureCtFtpCmd:
		return float64(r.CtFtpCmd)
	case FeatureCtFlwHTTPMthd:
		return float64(r.CtFlwHTTPMthd)
	case FeatureCtSrcLtm:
		return float64(r.CtSrcLtm)
	case FeatureCtSrvDst:
		return float64(r.CtSrvDst)
	}
	return 0
}
