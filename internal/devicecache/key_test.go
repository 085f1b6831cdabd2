package devicecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMAC(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Key
		wantErr bool
	}{
		{"colon lower", "00:11:22:33:44:01", "00:11:22:33:44:01", false},
		{"colon upper", "AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff", false},
		{"hyphen", "aa-bb-cc-dd-ee-ff", "aa:bb:cc:dd:ee:ff", false},
		{"dotted", "0011.2233.4401", "00:11:22:33:44:01", false},
		{"surrounding space", "  00:11:22:33:44:01 ", "00:11:22:33:44:01", false},
		{"empty", "", "", true},
		{"garbage", "not-a-mac", "", true},
		{"too short", "00:11:22:33:44", "", true},
		{"eui64", "00:11:22:33:44:55:66:77", "", true},
		{"bad digit", "00:11:22:33:44:zz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMAC(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedKey)
				assert.Contains(t, err.Error(), tt.input)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDeviceID(t *testing.T) {
	k, err := ParseDeviceID(" prod_server_001 ")
	require.NoError(t, err)
	assert.Equal(t, Key("prod_server_001"), k)

	_, err = ParseDeviceID("   ")
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestKeyMode_Parser(t *testing.T) {
	p, err := KeyModeMAC.Parser()
	require.NoError(t, err)
	_, err = p("prod_server_001")
	assert.ErrorIs(t, err, ErrMalformedKey)

	p, err = KeyModeDeviceID.Parser()
	require.NoError(t, err)
	k, err := p("prod_server_001")
	require.NoError(t, err)
	assert.Equal(t, "prod_server_001", k.String())

	_, err = KeyMode("serial").Parser()
	assert.Error(t, err)
}

func TestMatchesKeyPattern(t *testing.T) {
	k := Key("aa:bb:cc:dd:ee:ff")
	assert.True(t, matchesKeyPattern(k, "aa:bb"))
	assert.True(t, matchesKeyPattern(k, "ee:ff"))
	assert.False(t, matchesKeyPattern(k, "AA:BB"))
	assert.False(t, matchesKeyPattern(k, "00:11"))

	assert.True(t, matchesKeyPattern(Key("Sensor-A"), "Sensor"))
	assert.False(t, matchesKeyPattern(Key("sensor-b"), "Sensor"))
}
