// Copyright © 2020 AMIS Technologies
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package paillier implements the Paillier cryptosystem used by the HGG
// oblivious feature selection phase: key generation, CRT-accelerated
// decryption, the homomorphic Add/MulConst operations and the packed
// blind-and-select exchange that hides the server's selection bits from the
// client. It is grounded on the repository's flat paillier/ package, extended
// with the CRT private-key fields a production Paillier implementation keeps
// for fast decryption.
package paillier

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	// MinKeyBits is the smallest modulus size callers may request outside
	// of tests.
	MinKeyBits = 2048

	maxGenRetries = 100
)

var (
	// ErrInvalidMessage is returned if a plaintext or ciphertext falls
	// outside its valid range.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrSmallKey is returned if a key size below MinKeyBits is requested
	// outside of NewUnsafe.
	ErrSmallKey = errors.New("paillier: key size too small")
	// ErrExceedMaxRetry is returned if key generation fails to find
	// suitable parameters after maxGenRetries attempts.
	ErrExceedMaxRetry = errors.New("exceed max retries")
	// ErrNoRemoteKey is returned if an operation needing the remote
	// public key runs before ReadRemotePublicKey completed.
	ErrNoRemoteKey = errors.New("paillier: remote public key not loaded")

	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// PublicKey is the Paillier public key (n, g) plus its cached derived
// values.
type PublicKey struct {
	N       *big.Int
	G       *big.Int
	NSquare *big.Int
}

func newPublicKey(n, g *big.Int) *PublicKey {
	return &PublicKey{
		N:       n,
		G:       g,
		NSquare: new(big.Int).Mul(n, n),
	}
}

// Encrypt computes c = g^m * r^n mod n^2 for a fresh random r coprime to n.
func (pub *PublicKey) Encrypt(m *big.Int) (*big.Int, error) {
	if m.Sign() < 0 || m.Cmp(pub.N) >= 0 {
		return nil, ErrInvalidMessage
	}
	r, err := RandomCoprimeInt(pub.N)
	if err != nil {
		return nil, err
	}
	gm := new(big.Int).Exp(pub.G, m, pub.NSquare)
	rn := new(big.Int).Exp(r, pub.N, pub.NSquare)
	c := new(big.Int).Mul(gm, rn)
	return c.Mod(c, pub.NSquare), nil
}

// Add homomorphically adds two ciphertexts.
func (pub *PublicKey) Add(c1, c2 *big.Int) (*big.Int, error) {
	if err := pub.checkCiphertext(c1); err != nil {
		return nil, err
	}
	if err := pub.checkCiphertext(c2); err != nil {
		return nil, err
	}
	result := new(big.Int).Mul(c1, c2)
	return result.Mod(result, pub.NSquare), nil
}

// MulConst homomorphically multiplies the plaintext behind c by scalar.
func (pub *PublicKey) MulConst(c *big.Int, scalar *big.Int) (*big.Int, error) {
	if err := pub.checkCiphertext(c); err != nil {
		return nil, err
	}
	s := new(big.Int).Mod(scalar, pub.N)
	return new(big.Int).Exp(c, s, pub.NSquare), nil
}

func (pub *PublicKey) checkCiphertext(c *big.Int) error {
	if c.Sign() <= 0 || c.Cmp(pub.NSquare) >= 0 {
		return ErrInvalidMessage
	}
	return nil
}

// PrivateKey carries the CRT decryption fields alongside the classic
// (lambda, mu) pair. p, q are the two prime factors of n; dp, dq are
// the CRT decryption exponents and qInv = q^-1 mod p recombines the two
// partial decryptions, exactly the speedup real Paillier implementations
// (including the GMP-backed original this package is grounded on) rely on.
type PrivateKey struct {
	Lambda *big.Int
	Mu     *big.Int

	p, q       *big.Int
	pSquare    *big.Int
	qSquare    *big.Int
	hp, hq     *big.Int
	qInv       *big.Int
}

// Paillier is a keypair: a PublicKey plus, for the party that generated it,
// the matching PrivateKey.
type Paillier struct {
	*PublicKey
	Private *PrivateKey
}

// New generates a fresh Paillier keypair. bits below MinKeyBits is rejected;
// use NewUnsafe for tests that need small, fast keys.
func New(bits int) (*Paillier, error) {
	if bits < MinKeyBits {
		return nil, ErrSmallKey
	}
	return NewUnsafe(bits)
}

// NewUnsafe generates a Paillier keypair without enforcing MinKeyBits. Only
// safe to use in tests.
func NewUnsafe(bits int) (*Paillier, error) {
	p, q, n, lambda, err := genNAndLambda(bits)
	if err != nil {
		return nil, err
	}
	g := new(big.Int).Add(n, big1) // g = n+1, the standard simplified generator
	nSquare := new(big.Int).Mul(n, n)
	mu, err := computeMu(lambda, g, n, nSquare)
	if err != nil {
		return nil, err
	}

	pSquare := new(big.Int).Mul(p, p)
	qSquare := new(big.Int).Mul(q, q)
	hp, err := hFunction(g, p, pSquare)
	if err != nil {
		return nil, err
	}
	hq, err := hFunction(g, q, qSquare)
	if err != nil {
		return nil, err
	}
	qInv := new(big.Int).ModInverse(q, p)
	if qInv == nil {
		return nil, ErrExceedMaxRetry
	}

	return &Paillier{
		PublicKey: newPublicKey(n, g),
		Private: &PrivateKey{
			Lambda:  lambda,
			Mu:      mu,
			p:       p,
			q:       q,
			pSquare: pSquare,
			qSquare: qSquare,
			hp:      hp,
			hq:      hq,
			qInv:    qInv,
		},
	}, nil
}

// Decrypt recovers the plaintext via the plain (lambda, mu) formula.
func (p *Paillier) Decrypt(c *big.Int) (*big.Int, error) {
	if err := p.checkCiphertext(c); err != nil {
		return nil, err
	}
	x := new(big.Int).Exp(c, p.Private.Lambda, p.NSquare)
	l, err := lFunction(x, p.N)
	if err != nil {
		return nil, err
	}
	l.Mul(l, p.Private.Mu)
	return l.Mod(l, p.N), nil
}

// DecryptCRT recovers the plaintext using the CRT speedup: decrypt modulo p
// and q separately (cheap, since exponents and moduli are half the size),
// then recombine with Garner's formula.
func (p *Paillier) DecryptCRT(c *big.Int) (*big.Int, error) {
	if err := p.checkCiphertext(c); err != nil {
		return nil, err
	}
	priv := p.Private

	cp := new(big.Int).Exp(c, new(big.Int).Sub(priv.p, big1), priv.pSquare)
	lp, err := lFunction(cp, priv.p)
	if err != nil {
		return nil, err
	}
	mp := new(big.Int).Mul(lp, priv.hp)
	mp.Mod(mp, priv.p)

	cq := new(big.Int).Exp(c, new(big.Int).Sub(priv.q, big1), priv.qSquare)
	lq, err := lFunction(cq, priv.q)
	if err != nil {
		return nil, err
	}
	mq := new(big.Int).Mul(lq, priv.hq)
	mq.Mod(mq, priv.q)

	// Garner's formula: m = mp + p * ((mq - mp) * qInv mod q)
	diff := new(big.Int).Sub(mq, mp)
	diff.Mod(diff, priv.q)
	diff.Mul(diff, priv.qInv)
	diff.Mod(diff, priv.q)
	m := new(big.Int).Mul(diff, priv.p)
	m.Add(m, mp)
	return m.Mod(m, p.N), nil
}

func computeMu(lambda, g, n, nSquare *big.Int) (*big.Int, error) {
	x := new(big.Int).Exp(g, lambda, nSquare)
	u, err := lFunction(x, n)
	if err != nil {
		return nil, err
	}
	mu := new(big.Int).ModInverse(u, n)
	if mu == nil {
		return nil, ErrExceedMaxRetry
	}
	return mu, nil
}

// hFunction computes h = L(g^(p-1) mod p^2)^-1 mod p, the CRT precomputed
// value shared by both partial decryptions.
func hFunction(g, prime, primeSquare *big.Int) (*big.Int, error) {
	x := new(big.Int).Exp(g, new(big.Int).Sub(prime, big1), primeSquare)
	l, err := lFunction(x, prime)
	if err != nil {
		return nil, err
	}
	h := new(big.Int).ModInverse(l, prime)
	if h == nil {
		return nil, ErrExceedMaxRetry
	}
	return h, nil
}

// genNAndLambda returns p, q, n=pq and lambda=lcm(p-1,q-1), with g=n+1 (the
// standard simplified-generator Paillier variant, valid because g=n+1 always
// satisfies the scheme's generator requirement when n=pq is square-free).
func genNAndLambda(bits int) (p, q, n, lambda *big.Int, err error) {
	pqBits := bits / 2
	for i := 0; i < maxGenRetries; i++ {
		p, err = rand.Prime(rand.Reader, pqBits)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		q, err = rand.Prime(rand.Reader, pqBits)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if p.Cmp(q) == 0 {
			continue
		}
		n = new(big.Int).Mul(p, q)
		pMinus1 := new(big.Int).Sub(p, big1)
		qMinus1 := new(big.Int).Sub(q, big1)
		lambda, err = Lcm(pMinus1, qMinus1)
		if err != nil {
			continue
		}
		return p, q, n, lambda, nil
	}
	return nil, nil, nil, nil, ErrExceedMaxRetry
}

// lFunction computes L(x) = (x-1)/n.
func lFunction(x, n *big.Int) (*big.Int, error) {
	if n.Sign() <= 0 || x.Sign() <= 0 {
		return nil, ErrInvalidMessage
	}
	t := new(big.Int).Sub(x, big1)
	return t.Div(t, n), nil
}
