package keys

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"vote-admin/models"
)

const (
	// Purpose and coin type of the candidate key hierarchy: m/32'/159'/index'.
	keyPurpose   = 32
	voteCoinType = 159
)

// ErrIndexExhausted is returned for indices outside the hardened range.
var ErrIndexExhausted = errors.New("candidate index exhausts the derivation space")

// CandidateKey is the keypair controlling one candidate's voting address.
type CandidateKey struct {
	Index       uint32
	Path        accounts.DerivationPath
	SpendingKey *ecdsa.PrivateKey
	ViewingKey  *ecdsa.PublicKey
}

// Address encodes the candidate's public voting address.
func (k *CandidateKey) Address() (string, error) {
	return EncodeAddress(k.ViewingKey)
}

// CandidatePath returns the hardened derivation path for a candidate index.
func CandidatePath(index uint32) (accounts.DerivationPath, error) {
	if index >= hdkeychain.HardenedKeyStart {
		return nil, errors.Wrapf(ErrIndexExhausted, "index %d", index)
	}
	return accounts.DerivationPath{
		hdkeychain.HardenedKeyStart + keyPurpose,
		hdkeychain.HardenedKeyStart + voteCoinType,
		hdkeychain.HardenedKeyStart + index,
	}, nil
}

// DeriveCandidateKey derives the keypair at index from the election seed.
// Every path element is hardened, so knowing one candidate key reveals
// nothing about its siblings.
func DeriveCandidateKey(seed []byte, index uint32) (*CandidateKey, error) {
	path, err := CandidatePath(index)
	if err != nil {
		return nil, err
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	for _, child := range path {
		key, err = key.Derive(child)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive %s", path)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to extract key at %s", path)
	}

	spendingKey, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, errors.Wrapf(err, "invalid key at %s", path)
	}

	return &CandidateKey{
		Index:       index,
		Path:        path,
		SpendingKey: spendingKey,
		ViewingKey:  &spendingKey.PublicKey,
	}, nil
}

// DeriveAddress is DeriveCandidateKey followed by address encoding.
func DeriveAddress(seed []byte, index uint32) (string, error) {
	key, err := DeriveCandidateKey(seed, index)
	if err != nil {
		return "", err
	}
	return key.Address()
}

// DeriveCandidates assigns one address per label, using the label's position
// as its derivation index.
func DeriveCandidates(seed []byte, labels []string) ([]models.CandidateChoice, error) {
	candidates := make([]models.CandidateChoice, 0, len(labels))
	for i, label := range labels {
		address, err := DeriveAddress(seed, uint32(i))
		if err != nil {
			return nil, errors.Wrapf(err, "candidate %q", label)
		}
		candidates = append(candidates, models.CandidateChoice{
			Address: address,
			Choice:  label,
		})
	}
	return candidates, nil
}

// VerifyCandidates checks that every candidate address is the one derived
// from seed at the candidate's position.
func VerifyCandidates(seed []byte, candidates []models.CandidateChoice) error {
	for i, c := range candidates {
		expected, err := DeriveAddress(seed, uint32(i))
		if err != nil {
			return errors.Wrapf(err, "candidate %q", c.Choice)
		}
		if c.Address != expected {
			return errors.Errorf("candidate %d (%q) has address %s, seed derives %s", i, c.Choice, c.Address, expected)
		}
	}
	return nil
}
