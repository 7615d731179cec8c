package keys

import (
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

const (
	// SeedPassphrase is mixed into every election seed so that a phrase
	// reused by a regular wallet derives unrelated keys.
	SeedPassphrase = "vote"

	// 256 bits of entropy gives a 24 word phrase.
	phraseEntropyBits = 256
)

// PhraseGenerator produces a fresh recovery phrase and the seed derived from it.
type PhraseGenerator interface {
	Generate() (phrase string, seed []byte, err error)
}

// MnemonicGenerator generates BIP-39 phrases from crypto/rand entropy.
type MnemonicGenerator struct{}

func NewMnemonicGenerator() *MnemonicGenerator {
	return &MnemonicGenerator{}
}

func (g *MnemonicGenerator) Generate() (string, []byte, error) {
	entropy, err := bip39.NewEntropy(phraseEntropyBits)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to read entropy")
	}

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to build mnemonic")
	}

	return phrase, bip39.NewSeed(phrase, SeedPassphrase), nil
}

// SeedFromPhrase recovers the election seed from a previously issued phrase.
func SeedFromPhrase(phrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(phrase, SeedPassphrase)
	if err != nil {
		return nil, errors.Wrap(err, "invalid recovery phrase")
	}
	return seed, nil
}
