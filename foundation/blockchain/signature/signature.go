// Package signature provides helper functions for handling the blockchain
// digest and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros. It is used as the previous hash
// reference for the genesis block.
var ZeroHash = strings.Repeat("0", HashLength*2)

// HashLength is the number of bytes produced by Digest.
const HashLength = sha256.Size

// Set of error variables for encoding problems.
var (
	ErrInvalidHex       = errors.New("invalid hex encoded hash")
	ErrInvalidKey       = errors.New("invalid public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// =============================================================================

// Digest returns the sha256 hash of the specified data.
func Digest(data []byte) [HashLength]byte {
	return sha256.Sum256(data)
}

// DigestHex returns the hex encoded sha256 hash of the specified data.
func DigestHex(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashToBytes decodes a 64 character hex hash into its raw bytes.
func HashToBytes(hash string) ([HashLength]byte, error) {
	var b [HashLength]byte

	if len(hash) != HashLength*2 {
		return b, fmt.Errorf("%w: length %d", ErrInvalidHex, len(hash))
	}

	if _, err := hex.Decode(b[:], []byte(hash)); err != nil {
		return b, fmt.Errorf("%w: %s", ErrInvalidHex, err)
	}

	return b, nil
}

// BytesToHash encodes raw hash bytes into the lowercase hex form used
// throughout the chain.
func BytesToHash(hash []byte) string {
	return hex.EncodeToString(hash)
}

// =============================================================================

// GenerateKeypair constructs a new private key and returns it with the
// encoded version of its public key.
func GenerateKeypair() (*ecdsa.PrivateKey, string, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, "", fmt.Errorf("generating key: %w", err)
	}

	return privateKey, PublicKeyToString(privateKey.PublicKey), nil
}

// PublicKeyToString encodes the uncompressed public key as a 0x prefixed
// hex string.
func PublicKeyToString(pk ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.FromECDSAPub(&pk))
}

// DecodePublicKey converts the encoded public key back into its raw bytes
// and validates the bytes represent a point on the curve.
func DecodePublicKey(key string) ([]byte, error) {
	b, err := hexutil.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	if _, err := crypto.UnmarshalPubkey(b); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}

	return b, nil
}

// Sign uses the specified private key to sign the data.
func Sign(data []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(stamp(data), privateKey)
	if err != nil {
		return nil, fmt.Errorf("signing data: %w", err)
	}

	return sig, nil
}

// Verify checks the signature was produced for the data by the owner of the
// specified public key.
func Verify(data []byte, sig []byte, publicKey string) (bool, error) {
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	pub, err := DecodePublicKey(publicKey)
	if err != nil {
		return false, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	return crypto.VerifySignature(pub, stamp(data), rs), nil
}

// SignatureString returns the signature as a string.
func SignatureString(sig []byte) string {
	return hexutil.Encode(sig)
}

// DecodeSignature converts a hex representation of the signature back
// into its raw bytes.
func DecodeSignature(sig string) ([]byte, error) {
	b, err := hexutil.Decode(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return b, nil
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this data with
// the pool chain stamp embedded into the final hash.
func stamp(data []byte) []byte {

	// Hash the data data into a 32 byte array. This will provide
	// a data length consistency with all data.
	txHash := Digest(data)

	// This stamp is used so signatures we produce when signing data
	// are always unique to this blockchain.
	stamp := []byte("\x19Poolchain Signed Message:\n32")

	return crypto.Keccak256(stamp, txHash[:])
}
