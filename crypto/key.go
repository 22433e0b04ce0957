package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

// GenerateKeyFile creates a secp256k1 account key and stores it hex encoded
// at path.
func GenerateKeyFile(path string) (common.Address, error) {
	priv, err := eth_crypto.GenerateKey()
	if err != nil {
		return common.Address{}, err
	}
	if err := SaveKey(path, priv); err != nil {
		return common.Address{}, err
	}
	return eth_crypto.PubkeyToAddress(priv.PublicKey), nil
}

func SaveKey(path string, priv *ecdsa.PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	key := hex.EncodeToString(eth_crypto.FromECDSA(priv))
	return os.WriteFile(path, []byte(key), 0o600)
}

func LoadKey(path string) (*ecdsa.PrivateKey, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	priv, err := eth_crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(dat)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", path, err)
	}
	return priv, nil
}

func KeyAddress(priv *ecdsa.PrivateKey) common.Address {
	return eth_crypto.PubkeyToAddress(priv.PublicKey)
}
