package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
)

// Protocol is the transport/network protocol tag of a flow record.
type Protocol uint8

// Protocol values keep the wire ordering of the record producer.
const (
	ProtoTCP Protocol = iota
	ProtoUDP
	ProtoARP
	ProtoOSPF
	ProtoICMP
	ProtoIGMP
	ProtoRtp
	ProtoDdp
	ProtoIpv6Frag
	ProtoCftp
	ProtoWsn
	ProtoPvp
	ProtoWbExpak
	ProtoMtp
	ProtoPriEnc
	ProtoSatMon
	ProtoCphb
	ProtoSunNd
	ProtoIsoIp
	ProtoXtp
	ProtoIl
	ProtoUnas
	ProtoMfeNsp
	ProtoThreePc
	ProtoIpv6Route
	ProtoIdrp
	ProtoBna
	ProtoSwipe
	ProtoKryptolan
	ProtoCpnx
	ProtoRsvp
	ProtoWbMon
	ProtoVmtp
	ProtoIb
	ProtoDgp
	ProtoEigrp
	ProtoAx25
	ProtoGmtp
	ProtoPnni
	ProtoSep
	ProtoPgm
	ProtoIdprCmtp
	ProtoZero
	ProtoRvd
	ProtoMobile
	ProtoNarp
	ProtoFc
	ProtoPipe
	ProtoIpcomp
	ProtoIpv6No
	ProtoSatExpak
	ProtoIpv6Opts
	ProtoSnp
	ProtoIpcv
	ProtoBrSatMon
	ProtoTtp
	ProtoTcf
	ProtoNsfnetIgp
	ProtoSpriteRpc
	ProtoAesSp3D
	ProtoSccopmce
	ProtoSctp
	ProtoQnx
	ProtoScps
	ProtoEtherip
	ProtoAris
	ProtoPim
	ProtoCompaqPeer
	ProtoVrrp
	ProtoIatp
	ProtoStp
	ProtoL2tp
	ProtoSrp
	ProtoSm
	ProtoIsis
	ProtoSmp
	ProtoFire
	ProtoPtp
	ProtoCrtp
	ProtoSps
	ProtoMeritInp
	ProtoIdpr
	ProtoSkip
	ProtoAny
	ProtoLarp
	ProtoIpip
	ProtoMicp
	ProtoEncap
	ProtoIfmp
	ProtoTpPp
	ProtoAn
	ProtoIpv6
	ProtoINlsp
	ProtoIpxNIp
	ProtoSdrp
	ProtoTlsp
	ProtoGre
	ProtoMhrp
	ProtoDdx
	ProtoIppc
	ProtoVisa
	ProtoSecureVmtp
	ProtoUti
	ProtoVines
	ProtoCrudp
	ProtoIplt
	ProtoGgp
	ProtoIP
	ProtoIpnip
	ProtoSt2
	ProtoArgus
	ProtoBbnRcc
	ProtoEgp
	ProtoEmcon
	ProtoIgp
	ProtoNvp
	ProtoPup
	ProtoXnet
	ProtoChaos
	ProtoMux
	ProtoDcn
	ProtoHmp
	ProtoPrm
	ProtoTrunk1
	ProtoXnsIdp
	ProtoLeaf1
	ProtoLeaf2
	ProtoRdp
	ProtoIrtp
	ProtoIsoTp4
	ProtoNetblt
	ProtoTrunk2
	ProtoCbt
)

var protocolNames = [...]string{
	"tcp",
	"udp",
	"arp",
	"ospf",
	"icmp",
	"igmp",
	"rtp",
	"ddp",
	"ipv6-frag",
	"cftp",
	"wsn",
	"pvp",
	"wb-expak",
	"mtp",
	"pri-enc",
	"sat-mon",
	"cphb",
	"sun-nd",
	"iso-ip",
	"xtp",
	"il",
	"unas",
	"mfe-nsp",
	"3pc",
	"ipv6-route",
	"idrp",
	"bna",
	"swipe",
	"kryptolan",
	"cpnx",
	"rsvp",
	"wb-mon",
	"vmtp",
	"ib",
	"dgp",
	"eigrp",
	"ax.25",
	"gmtp",
	"pnni",
	"sep",
	"pgm",
	"idpr-cmtp",
	"zero",
	"rvd",
	"mobile",
	"narp",
	"fc",
	"pipe",
	"ipcomp",
	"ipv6-no",
	"sat-expak",
	"ipv6-opts",
	"snp",
	"ipcv",
	"br-sat-mon",
	"ttp",
	"tcf",
	"nsfnet-igp",
	"sprite-rpc",
	"aes-sp3-d",
	"sccopmce",
	"sctp",
	"qnx",
	"scps",
	"etherip",
	"aris",
	"pim",
	"compaq-peer",
	"vrrp",
	"iatp",
	"stp",
	"l2tp",
	"srp",
	"sm",
	"isis",
	"smp",
	"fire",
	"ptp",
	"crtp",
	"sps",
	"merit-inp",
	"idpr",
	"skip",
	"any",
	"larp",
	"ipip",
	"micp",
	"encap",
	"ifmp",
	"tp-pp",
	"a/n",
	"ipv6",
	"i-nlsp",
	"ipx-n-ip",
	"sdrp",
	"tlsp",
	"gre",
	"mhrp",
	"ddx",
	"ippc",
	"visa",
	"secure-vmtp",
	"uti",
	"vines",
	"crudp",
	"iplt",
	"ggp",
	"ip",
	"ipnip",
	"st2",
	"argus",
	"bbn-rcc",
	"egp",
	"emcon",
	"igp",
	"nvp",
	"pup",
	"xnet",
	"chaos",
	"mux",
	"dcn",
	"hmp",
	"prm",
	"trunk-1",
	"xns-idp",
	"leaf-1",
	"leaf-2",
	"rdp",
	"irtp",
	"iso-tp4",
	"netblt",
	"trunk-2",
	"cbt",
}

// NumProtocols is the number of defined protocol tags.
const NumProtocols = len(protocolNames)

func (p Protocol) String() string {
	if int(p) < len(protocolNames) {
		return protocolNames[p]
	}
	return "proto(" + strconv.Itoa(int(p)) + ")"
}

// Valid reports whether p is a defined protocol tag.
func (p Protocol) Valid() bool {
	return int(p) < len(protocolNames)
}

// ParseProtocol accepts a protocol name ("tcp", "ipv6-frag") or an IANA
// protocol number ("6", "17") and returns the matching tag.
func ParseProtocol(s string) (Protocol, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		s = strings.ToLower(layers.IPProtocol(n).String())
		if s == "icmpv4" {
			s = "icmp"
		}
	}
	for i, name := range protocolNames {
		if name == s {
			return Protocol(i), nil
		}
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}
