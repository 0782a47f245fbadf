package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in   string
		want Protocol
	}{
		{"tcp", ProtoTCP},
		{"UDP", ProtoUDP},
		{" ipv6-frag ", ProtoIpv6Frag},
		{"3pc", ProtoThreePc},
		{"6", ProtoTCP},
		{"17", ProtoUDP},
		{"1", ProtoICMP},
	}
	for _, tt := range tests {
		got, err := ParseProtocol(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseProtocol("nope")
	assert.Error(t, err)
	assert.Equal(t, "cbt", Protocol(NumProtocols-1).String())
	assert.False(t, Protocol(NumProtocols).Valid())
}

func TestParseCategoricals(t *testing.T) {
	s, err := ParseService("ftp-data")
	require.NoError(t, err)
	assert.Equal(t, ServiceFTPData, s)

	s, err = ParseService("none")
	require.NoError(t, err)
	assert.Equal(t, ServiceNone, s)

	st, err := ParseState("CON")
	require.NoError(t, err)
	assert.Equal(t, StateCON, st)

	a, err := ParseAttackCategory("dos")
	require.NoError(t, err)
	assert.Equal(t, AttackDoS, a)

	_, err = ParseAttackCategory("ddos")
	assert.Error(t, err)
}

func TestFeatureValue(t *testing.T) {
	r := &Record{Rate: 2.5, Sbytes: 1000, Sttl: 31, CtSrvDst: 4}

	for _, tt := range []struct {
		name string
		want float64
	}{
		{"rate", 2.5},
		{"sbytes", 1000},
		{"sttl", 31},
		{"ct_srv_dst", 4},
		{"dur", 0},
	} {
		f, err := ParseFeature(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.name, f.String())
		assert.Equal(t, tt.want, f.Value(r))
	}

	_, err := ParseFeature("bogus")
	assert.ErrorIs(t, err, ErrUnknownFeature)
	assert.Len(t, Features(), int(numFeatures))
}

func TestIndexTags(t *testing.T) {
	for _, tag := range AllTags() {
		got, ok := ParseIndexTag(tag.String())
		require.True(t, ok)
		assert.Equal(t, tag, got)
	}
	got, ok := ParseIndexTag("4")
	require.True(t, ok)
	assert.Equal(t, TagCuckoo, got)
	_, ok = ParseIndexTag("5")
	assert.False(t, ok)
	assert.False(t, Ref{ID: 3}.Valid())
	assert.True(t, Ref{ID: 3, Handle: 1}.Valid())
}
