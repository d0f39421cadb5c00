package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dataSHA1Hex    = "db67b9e86cfa0d9c4871f30a94b804eeaeb17c98"
	dataSHA1SRI    = "sha1-22e56Gz6DZxIcfMKlLgE7q6xfJg="
	dataSHA512SRI  = "sha512-HvT1N2ZImHjm8fzNjKxzEByoyjAX1cPy1QQvyTeT6Qs1YTsANyinaHGotqvpaEKsaLzbdk6qqOGyum0B0uRe4w=="
	emptySHA512SRI = "sha512-z4PhNX7vuL3xVChQ1m2AB9Yg5AULVxXcg/SpIdNs6c5H0NE8XYXysP+DGNKHfuwvY7kxvUdBeoGlODJ6+SfaPg=="
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantAlgo Algorithm
		wantHex  string
		wantErr  bool
	}{
		{
			name:     "sha1 sri",
			input:    dataSHA1SRI,
			wantAlgo: SHA1,
			wantHex:  dataSHA1Hex,
		},
		{
			name:     "bare sha1 hex",
			input:    dataSHA1Hex,
			wantAlgo: SHA1,
			wantHex:  dataSHA1Hex,
		},
		{
			name:     "sha512 sri",
			input:    dataSHA512SRI,
			wantAlgo: SHA512,
		},
		{
			name:     "sri with options",
			input:    dataSHA1SRI + "?opt",
			wantAlgo: SHA1,
			wantHex:  dataSHA1Hex,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "unknown algorithm",
			input:   "md5-1B2M2Y8AsgTpgAmY7PhCfg==",
			wantErr: true,
		},
		{
			name:    "wrong digest length",
			input:   "sha512-" + strings.TrimPrefix(dataSHA1SRI, "sha1-"),
			wantErr: true,
		},
		{
			name:    "not base64",
			input:   "sha1-!!!",
			wantErr: true,
		},
		{
			name:    "short hex",
			input:   "abc123",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				var malformed *MalformedHashError
				require.ErrorAs(t, err, &malformed)
				assert.Equal(t, strings.TrimSpace(tt.input), malformed.Input)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAlgo, got.Algorithm)
			if tt.wantHex != "" {
				assert.Equal(t, tt.wantHex, got.Hex())
			}
		})
	}
}

func TestSRIRoundTrip(t *testing.T) {
	for _, sri := range []string{dataSHA1SRI, dataSHA512SRI} {
		h, err := Parse(sri)
		require.NoError(t, err)
		assert.Equal(t, sri, h.SRI())
	}
}

func TestHexToSRI(t *testing.T) {
	h, err := FromHex(SHA1, dataSHA1Hex)
	require.NoError(t, err)
	assert.Equal(t, dataSHA1SRI, h.SRI())

	_, err = FromHex(SHA1, "zz")
	assert.Error(t, err)
}

func TestParseIntegrityPicksStrongest(t *testing.T) {
	h, err := ParseIntegrity(dataSHA1SRI + " " + dataSHA512SRI)
	require.NoError(t, err)
	assert.Equal(t, SHA512, h.Algorithm)

	_, err = ParseIntegrity("   ")
	assert.Error(t, err)
}

func TestParseIntegrityListKeepsEveryToken(t *testing.T) {
	field := dataSHA1SRI + " " + dataSHA512SRI
	hashes, err := ParseIntegrityList(field)
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	assert.Equal(t, SHA512, Strongest(hashes).Algorithm)

	sha1, ok := Find(hashes, SHA1)
	require.True(t, ok)
	assert.Equal(t, dataSHA1Hex, sha1.Hex())
	_, ok = Find(hashes, SHA256)
	assert.False(t, ok)

	assert.Equal(t, field, FormatIntegrity(hashes))

	_, err = ParseIntegrityList(dataSHA1SRI + " sha1-bogus")
	assert.Error(t, err)
}

func TestEquivalent(t *testing.T) {
	sha1Data, _ := Parse(dataSHA1SRI)
	sha512Data, _ := Parse(dataSHA512SRI)
	sha512Empty, _ := Parse(emptySHA512SRI)

	assert.True(t, Equivalent(sha1Data, sha1Data))
	assert.True(t, Equivalent(sha512Data, sha512Data))
	assert.False(t, Equivalent(sha512Data, sha512Empty))
	assert.True(t, Equivalent(sha1Data, sha512Empty), "different algorithms cannot be disproved")
	assert.False(t, Equivalent(Hash{}, sha1Data))
	assert.False(t, Equivalent(Hash{}, Hash{}))
}

func TestSum(t *testing.T) {
	sums, err := Sum(strings.NewReader("test data for hashing"), SHA1, SHA512)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, dataSHA1SRI, sums[0].SRI())
	assert.Equal(t, dataSHA512SRI, sums[1].SRI())

	_, err = Sum(strings.NewReader(""), Algorithm("md5"))
	assert.Error(t, err)
}
