package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Candidate
	}{
		{
			name: "udp",
			in:   "udp://tracker.example.org:6969",
			want: Candidate{Transport: TransportUDP, Host: "tracker.example.org", Port: 6969},
		},
		{
			name: "http with suffix",
			in:   "http://tracker.example.org:80/announce",
			want: Candidate{Transport: TransportHTTP, Host: "tracker.example.org", Port: 80, Suffix: "/announce"},
		},
		{
			name: "https with nested suffix",
			in:   "https://t.example.org:443/a/announce",
			want: Candidate{Transport: TransportHTTPS, Host: "t.example.org", Port: 443, Suffix: "/a/announce"},
		},
		{
			name: "ipv4 literal host",
			in:   "udp://93.184.216.34:1337",
			want: Candidate{Transport: TransportUDP, Host: "93.184.216.34", Port: 1337},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.in, c.String())
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"comment", "# a comment"},
		{"no port", "udp://tracker.example.org"},
		{"too many colons", "udp://tracker.example.org:6969:extra"},
		{"unknown transport", "ftp://tracker.example.org:21"},
		{"missing slashes", "udp:tracker.example.org:6969"},
		{"empty host", "udp://:6969"},
		{"non-numeric port", "udp://tracker.example.org:http"},
		{"port overflow", "udp://tracker.example.org:70000"},
		{"negative port", "udp://tracker.example.org:-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestOrdering(t *testing.T) {
	candidates := []Candidate{
		{Transport: TransportUDP, Host: "b.example.org", Port: 80},
		{Transport: TransportHTTP, Host: "a.example.org", Port: 80},
		{Transport: TransportUDP, Host: "a.example.org", Port: 80},
	}

	Sort(candidates)

	assert.Equal(t, "http://a.example.org:80", candidates[0].String())
	assert.Equal(t, "udp://a.example.org:80", candidates[1].String())
	assert.Equal(t, "udp://b.example.org:80", candidates[2].String())
}

func TestDedupe(t *testing.T) {
	a := Candidate{Transport: TransportUDP, Host: "a.example.org", Port: 80}
	b := Candidate{Transport: TransportUDP, Host: "b.example.org", Port: 80}
	bSuffix := Candidate{Transport: TransportUDP, Host: "b.example.org", Port: 80, Suffix: "/x"}

	unique := Dedupe([]Candidate{a, b, a, b, bSuffix, a})

	assert.Equal(t, []Candidate{a, b, bSuffix}, unique)
}
