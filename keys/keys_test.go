package keys

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vote-admin/models"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon abandon abandon art"

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := SeedFromPhrase(testPhrase)
	require.NoError(t, err)
	return seed
}

func TestMnemonicGenerator(t *testing.T) {
	g := NewMnemonicGenerator()

	phrase, seed, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(phrase), 24)
	assert.Len(t, seed, 64)

	recovered, err := SeedFromPhrase(phrase)
	require.NoError(t, err)
	assert.Equal(t, seed, recovered)

	other, _, err := g.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, phrase, other)
}

func TestSeedFromPhraseRejectsGarbage(t *testing.T) {
	_, err := SeedFromPhrase("not a real recovery phrase")
	assert.Error(t, err)
}

func TestDeriveAddressDeterministic(t *testing.T) {
	seed := testSeed(t)

	first, err := DeriveAddress(seed, 0)
	require.NoError(t, err)
	again, err := DeriveAddress(seed, 0)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.True(t, strings.HasPrefix(first, AddressHRP+"1"))
}

func TestDeriveAddressDistinctIndices(t *testing.T) {
	seed := testSeed(t)

	seen := make(map[string]uint32)
	for i := uint32(0); i < 16; i++ {
		address, err := DeriveAddress(seed, i)
		require.NoError(t, err)
		if prev, ok := seen[address]; ok {
			t.Fatalf("index %d and %d share address %s", prev, i, address)
		}
		seen[address] = i
	}
}

func TestDeriveAddressSeedSensitive(t *testing.T) {
	g := NewMnemonicGenerator()
	_, seedA, err := g.Generate()
	require.NoError(t, err)
	_, seedB, err := g.Generate()
	require.NoError(t, err)

	labels := []string{"Alice", "Bob", "Carol"}
	a, err := DeriveCandidates(seedA, labels)
	require.NoError(t, err)
	b, err := DeriveCandidates(seedB, labels)
	require.NoError(t, err)

	for _, ca := range a {
		for _, cb := range b {
			assert.NotEqual(t, ca.Address, cb.Address)
		}
	}
}

func TestDeriveCandidateKey(t *testing.T) {
	seed := testSeed(t)

	key, err := DeriveCandidateKey(seed, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), key.Index)
	assert.Equal(t, "m/32'/159'/7'", key.Path.String())
	assert.Equal(t, crypto.PubkeyToAddress(key.SpendingKey.PublicKey), crypto.PubkeyToAddress(*key.ViewingKey))

	address, err := key.Address()
	require.NoError(t, err)

	pub, err := DecodeAddress(address)
	require.NoError(t, err)
	assert.Equal(t, crypto.CompressPubkey(key.ViewingKey), crypto.CompressPubkey(pub))
}

func TestDeriveCandidateKeyIndexExhausted(t *testing.T) {
	seed := testSeed(t)

	_, err := DeriveCandidateKey(seed, 1<<31)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexExhausted))

	_, err = DeriveCandidateKey(seed, 1<<31-1)
	assert.NoError(t, err)
}

func TestDeriveCandidatesPreservesOrder(t *testing.T) {
	seed := testSeed(t)

	candidates, err := DeriveCandidates(seed, []string{"Alice", "Bob", "Carol"})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	for i, c := range candidates {
		expected, err := DeriveAddress(seed, uint32(i))
		require.NoError(t, err)
		assert.Equal(t, expected, c.Address)
	}
	assert.Equal(t, "Alice", candidates[0].Choice)
	assert.Equal(t, "Bob", candidates[1].Choice)
	assert.Equal(t, "Carol", candidates[2].Choice)
}

func TestVerifyCandidates(t *testing.T) {
	seed := testSeed(t)

	candidates, err := DeriveCandidates(seed, []string{"Alice", "Bob"})
	require.NoError(t, err)
	assert.NoError(t, VerifyCandidates(seed, candidates))

	swapped := []models.CandidateChoice{candidates[1], candidates[0]}
	assert.Error(t, VerifyCandidates(seed, swapped))

	other, _, err := NewMnemonicGenerator().Generate()
	require.NoError(t, err)
	otherSeed, err := SeedFromPhrase(other)
	require.NoError(t, err)
	assert.Error(t, VerifyCandidates(otherSeed, candidates))
}

func TestDecodeAddressErrors(t *testing.T) {
	seed := testSeed(t)
	address, err := DeriveAddress(seed, 0)
	require.NoError(t, err)

	_, err = DecodeAddress("")
	assert.Error(t, err)

	// flip the last checksum character
	last := address[len(address)-1]
	flipped := byte('q')
	if last == 'q' {
		flipped = 'p'
	}
	_, err = DecodeAddress(address[:len(address)-1] + string(flipped))
	assert.Error(t, err)

	_, err = EncodeAddress(nil)
	assert.Error(t, err)
}

func TestParseChoices(t *testing.T) {
	tests := []struct {
		name     string
		choices  string
		expected []string
	}{
		{"simple", "Alice\nBob\nCarol", []string{"Alice", "Bob", "Carol"}},
		{"trailing newline", "Alice\nBob\n", []string{"Alice", "Bob"}},
		{"surrounding whitespace", "\n  Alice\nBob  \n\n", []string{"Alice", "Bob"}},
		{"blank interior line", "Alice\n\nBob", []string{"Alice", "Bob"}},
		{"whitespace interior line", "Alice\n   \t\nBob", []string{"Alice", "Bob"}},
		{"crlf", "Alice\r\nBob\r\n", []string{"Alice", "Bob"}},
		{"interior spacing kept", "Alice\n  Bob Smith ", []string{"Alice", "  Bob Smith"}},
		{"empty", "", nil},
		{"only whitespace", " \n\t\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseChoices(tt.choices))
		})
	}
}
