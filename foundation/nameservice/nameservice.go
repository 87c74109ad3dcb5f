// Package nameservice reads a folder of node key files and maps each miner
// public key to a readable name for logs and the events feed.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// keyExt is the extension of the key files written by the wallet.
const keyExt = ".ecdsa"

// NameService maintains a map of miner public keys to names.
type NameService struct {
	names map[string]string
}

// New walks the root folder and loads every key file it finds. A missing
// folder produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		names: make(map[string]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || filepath.Ext(fileName) != keyExt {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		key := signature.PublicKeyToString(privateKey.PublicKey)
		ns.names[key] = strings.TrimSuffix(filepath.Base(fileName), keyExt)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ns, nil
		}
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the public key, or the key itself when it
// is not known.
func (ns *NameService) Lookup(publicKey string) string {
	name, exists := ns.names[publicKey]
	if !exists {
		return publicKey
	}
	return name
}

// Names returns the names for the set of miner keys in order.
func (ns *NameService) Names(publicKeys []string) []string {
	names := make([]string, len(publicKeys))
	for i, key := range publicKeys {
		names[i] = ns.Lookup(key)
	}
	return names
}

// Copy returns a copy of the map of public keys to names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.names))
	for key, name := range ns.names {
		cpy[key] = name
	}
	return cpy
}
