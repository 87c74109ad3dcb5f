package signature_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	abcHash  = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	data := []byte("pool mining proposal")

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	sig, err := signature.Sign(data, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	publicKey := signature.PublicKeyToString(pk.PublicKey)

	ok, err := signature.Verify(data, sig, publicKey)
	if err != nil {
		t.Fatalf("Should be able to verify the signature: %s", err)
	}
	if !ok {
		t.Fatalf("Should get a valid signature for the signed data.")
	}

	ok, err = signature.Verify([]byte("other data"), sig, publicKey)
	if err != nil {
		t.Fatalf("Should be able to verify the signature: %s", err)
	}
	if ok {
		t.Fatalf("Should not get a valid signature for different data.")
	}

	str := signature.SignatureString(sig)
	back, err := signature.DecodeSignature(str)
	if err != nil {
		t.Fatalf("Should be able to decode the signature string: %s", err)
	}
	if string(back) != string(sig) {
		t.Fatalf("Should get back the same signature bytes.")
	}
}

func Test_Digest(t *testing.T) {
	got := signature.DigestHex([]byte("abc"))
	if got != abcHash {
		t.Logf("got: %s", got)
		t.Logf("exp: %s", abcHash)
		t.Fatalf("Should get back the right hash.")
	}

	b, err := signature.HashToBytes(got)
	if err != nil {
		t.Fatalf("Should be able to decode the hash: %s", err)
	}

	if signature.BytesToHash(b[:]) != abcHash {
		t.Fatalf("Should be able to encode the hash back.")
	}
}

func Test_Encoding(t *testing.T) {
	tt := []struct {
		name string
		hash string
	}{
		{name: "short", hash: "abcd"},
		{name: "prefixed", hash: "0x" + abcHash[2:]},
		{name: "nonhex", hash: "zz" + abcHash[2:]},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			_, err := signature.HashToBytes(tst.hash)
			if !errors.Is(err, signature.ErrInvalidHex) {
				t.Fatalf("Test %s:\tShould reject the hash with ErrInvalidHex: %v", tst.name, err)
			}
		}

		t.Run(tst.name, f)
	}

	if _, err := signature.DecodePublicKey("0x1234"); !errors.Is(err, signature.ErrInvalidKey) {
		t.Fatalf("Should reject a malformed public key: %v", err)
	}

	_, publicKey, err := signature.GenerateKeypair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}

	b, err := signature.DecodePublicKey(publicKey)
	if err != nil {
		t.Fatalf("Should be able to decode a generated public key: %s", err)
	}
	if len(b) != 65 {
		t.Fatalf("Should get back an uncompressed public key, got %d bytes", len(b))
	}
}
