package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Service is the application-level service detected on a flow.
type Service uint8

const (
	ServiceNone Service = iota
	ServiceFTP
	ServiceSMTP
	ServiceSNMP
	ServiceHTTP
	ServiceFTPData
	ServiceDNS
	ServiceSSH
	ServiceRadius
	ServicePOP3
	ServiceDHCP
	ServiceSSL
	ServiceIRC
)

var serviceNames = [...]string{"-", "ftp", "smtp", "snmp", "http", "ftp-data", "dns", "ssh", "radius", "pop3", "dhcp", "ssl", "irc"}

// NumServices is the number of defined service tags.
const NumServices = len(serviceNames)

// State is the connection state reported for a flow.
type State uint8

const (
	StateFIN State = iota
	StateINT
	StateCON
	StateECO
	StateREQ
	StateRST
	StatePAR
	StateURN
	StateNO
	StateACC
	StateCLO
)

var stateNames = [...]string{"fin", "int", "con", "eco", "req", "rst", "par", "urn", "no", "acc", "clo"}

// NumStates is the number of defined connection states.
const NumStates = len(stateNames)

// AttackCategory classifies the attack a flow belongs to, Normal for benign traffic.
type AttackCategory uint8

const (
	AttackNormal AttackCategory = iota
	AttackBackdoor
	AttackAnalysis
	AttackFuzzers
	AttackShellcode
	AttackReconnaissance
	AttackExploits
	AttackDoS
	AttackWorms
	AttackGeneric
)

var attackNames = [...]string{"normal", "backdoor", "analysis", "fuzzers", "shellcode", "reconnaissance", "exploits", "dos", "worms", "generic"}

// NumAttackCategories is the number of defined attack categories.
const NumAttackCategories = len(attackNames)

func (s Service) String() string {
	if int(s) < len(serviceNames) {
		return serviceNames[s]
	}
	return "service(" + strconv.Itoa(int(s)) + ")"
}

func (s Service) Valid() bool { return int(s) < len(serviceNames) }

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

func (s State) Valid() bool { return int(s) < len(stateNames) }

func (a AttackCategory) String() string {
	if int(a) < len(attackNames) {
		return attackNames[a]
	}
	return "attack(" + strconv.Itoa(int(a)) + ")"
}

func (a AttackCategory) Valid() bool { return int(a) < len(attackNames) }

// ParseService accepts a service name; "none" and "" are aliases of "-".
func ParseService(s string) (Service, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return ServiceNone, nil
	}
	i, err := lookupName(serviceNames[:], s)
	if err != nil {
		return 0, fmt.Errorf("unknown service: %w", err)
	}
	return Service(i), nil
}

// ParseState accepts a connection state name such as "fin" or "con".
func ParseState(s string) (State, error) {
	i, err := lookupName(stateNames[:], strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("unknown state: %w", err)
	}
	return State(i), nil
}

// ParseAttackCategory accepts an attack category name such as "dos".
func ParseAttackCategory(s string) (AttackCategory, error) {
	i, err := lookupName(attackNames[:], strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("unknown attack category: %w", err)
	}
	return AttackCategory(i), nil
}

func lookupName(names []string, s string) (int, error) {
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q", s)
}
