package keys

import (
	"crypto/ecdsa"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// AddressHRP is the human readable prefix of every voting address.
const AddressHRP = "zvote"

// EncodeAddress renders a candidate public key as a bech32m string.
func EncodeAddress(pub *ecdsa.PublicKey) (string, error) {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return "", errors.New("missing public key")
	}

	data, err := bech32.ConvertBits(crypto.CompressPubkey(pub), 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert address bits")
	}

	return bech32.EncodeM(AddressHRP, data)
}

// DecodeAddress parses a voting address back into its public key.
func DecodeAddress(address string) (*ecdsa.PublicKey, error) {
	hrp, data, version, err := bech32.DecodeGeneric(address)
	if err != nil {
		return nil, errors.Wrap(err, "malformed address")
	}
	if hrp != AddressHRP {
		return nil, errors.Errorf("unexpected address prefix %q", hrp)
	}
	if version != bech32.VersionM {
		return nil, errors.New("address is not bech32m encoded")
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert address bits")
	}

	pub, err := crypto.DecompressPubkey(payload)
	if err != nil {
		return nil, errors.Wrap(err, "invalid address key")
	}
	return pub, nil
}
