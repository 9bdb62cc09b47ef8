package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"93109", "93109"},
		{"k1a 0b1", "K1A0B1"},
		{" K1A\t0B1\n", "K1A0B1"},
		{"h0h 0h0", "H0H0H0"},
		{"\ufeffm5v", "M5V"},
		{"straße", "STRASSE"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCode(tt.in))
		})
	}
}

func TestNormalizeCode_Idempotent(t *testing.T) {
	inputs := []string{"93109", "k1a 0b1", "ǆ 12", "ﬀ", "İstanbul 34", "ß", "  a b c  "}
	for _, s := range inputs {
		once := NormalizeCode(s)
		assert.Equal(t, once, NormalizeCode(once), "input %q", s)
	}
}

func TestRecordKey(t *testing.T) {
	r := Record{PostalCode: "t2p 1j9"}
	assert.Equal(t, "T2P1J9", r.Key())
}
