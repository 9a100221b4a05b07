// Package heparty defines the common contract shared by the additively
// homomorphic cryptosystems used for oblivious feature selection: Paillier
// (crypto/paillier) and DGK (crypto/dgk). Both model holder (server) and
// feature holder (client) drive the same three-step protocol: generate or
// load a keypair, exchange public parameters, then run the packed
// blind-and-select exchange that hands the client additively masked
// attribute values without revealing the server's selection bits.
package heparty

import (
	"io"
	"math/big"
)

// Role identifies which side of the selection exchange a party plays.
type Role int

const (
	// RoleServer holds the decision tree; it never decrypts with its own
	// private key.
	RoleServer Role = iota
	// RoleClient holds the feature vector and the private key that
	// decrypts the blinded selection.
	RoleClient
)

// Ciphertext is an opaque wire-encoded ciphertext for a given scheme. Its
// byte layout is scheme-specific (see crypto/paillier and crypto/dgk).
type Ciphertext []byte

// Party is implemented by both crypto/paillier.Party and crypto/dgk.Party.
// It lets protocol/hgg drive either scheme
// through the same calls without caring which one was configured.
type Party interface {
	// Bits returns the security parameter (modulus size in bits).
	Bits() int

	// Encrypt encrypts a single plaintext attribute value under the
	// party's own public key.
	Encrypt(m *big.Int) (Ciphertext, error)

	// EncryptVector encrypts every entry of plaintexts, in order.
	EncryptVector(plaintexts []*big.Int) ([]Ciphertext, error)

	// Decrypt recovers the plaintext behind a ciphertext produced under
	// this party's own public key.
	Decrypt(c Ciphertext) (*big.Int, error)

	// WritePublicKey serializes the public parameters the remote party
	// needs to encrypt-for or homomorphically-operate-on our ciphertexts.
	WritePublicKey(w io.Writer) error

	// ReadRemotePublicKey loads the parameters sent by the counterparty,
	// completing the key exchange.
	ReadRemotePublicKey(r io.Reader) error

	// BlindAndSelect is the server-side half of the packed oblivious
	// transfer: given the client's ciphertexts CTs (indexed by feature),
	// a selection permutation and fresh random masks, it returns
	// n_batch packed ciphertexts ready to send to the client.
	//
	// selection[i] indexes into CTs for output slot i; masks[i] is added
	// (mod the plaintext space) to the selected value before packing.
	BlindAndSelect(cts []Ciphertext, selection []int, masks []uint64) ([]Ciphertext, error)

	// UnpackAndDecrypt is the client-side half: it decrypts the packed
	// ciphertexts from BlindAndSelect and unpacks them back into one
	// masked value per original selection slot.
	UnpackAndDecrypt(packed []Ciphertext, numSlots int) ([]uint64, error)
}
