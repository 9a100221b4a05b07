// Package dgk implements the DGK (Damgard-Geisler-Kroigaard) cryptosystem,
// the shorter-ciphertext alternative to Paillier for the HGG oblivious
// feature selection phase. Grounded on
// original_source/.../crypto_party/dgk_party.{h,cpp}: same public material
// shape (n, g, h, u), same keygen/read/store/exchange/encrypt/
// encSndRcvVec/mskSndRcvVec contract as crypto/paillier, but a single-
// modulus ciphertext (c = g^m h^r mod n, not mod n^2) and no packing - one
// ciphertext covers one decision node.
//
// The original's DGK::encrypt has a debug stub
// (`mpz_set_ui(res, plaintexts[i])` overwriting the real ciphertext before
// export, see its line "mpz_set_ui(res, plaintexts[i])"); this package
// always exports the genuine g^m h^r mod n ciphertext.
package dgk

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var (
	// ErrInvalidMessage is returned when a plaintext falls outside [0, u).
	ErrInvalidMessage = errors.New("dgk: invalid message")
	// ErrExceedMaxRetry is returned when keygen fails to find suitable
	// parameters within the retry budget.
	ErrExceedMaxRetry = errors.New("dgk: exceeded max retries")
	// ErrNoRemoteKey is returned when BlindAndSelect runs before the
	// counterparty's public key was loaded.
	ErrNoRemoteKey = errors.New("dgk: remote public key not loaded")
	// ErrDecryptRange is returned when decryption's discrete-log search
	// exhausts the plaintext space without finding a match - it means
	// the ciphertext was not produced under this key, or the plaintext
	// exceeded u.
	ErrDecryptRange = errors.New("dgk: plaintext outside declared range")

	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

const maxGenRetries = 200

// PublicKey is the DGK public material: modulus n and the two generators g
// (carries the plaintext subgroup of order dividing u*vp) and h (blinding
// generator of order dividing vp*vq, coprime to u).
type PublicKey struct {
	N *big.Int
	G *big.Int
	H *big.Int
	U *big.Int // plaintext modulus: valid messages are in [0, U)
}

// Encrypt computes c = g^m * h^r mod n for a fresh random r.
func (pub *PublicKey) Encrypt(m *big.Int) (*big.Int, error) {
	if m.Sign() < 0 || m.Cmp(pub.U) >= 0 {
		return nil, ErrInvalidMessage
	}
	r, err := rand.Int(rand.Reader, pub.N)
	if err != nil {
		return nil, err
	}
	gm := new(big.Int).Exp(pub.G, m, pub.N)
	hr := new(big.Int).Exp(pub.H, r, pub.N)
	c := new(big.Int).Mul(gm, hr)
	return c.Mod(c, pub.N), nil
}

// Add homomorphically adds two ciphertexts mod u (re-randomizing with a
// fresh h^r factor is the caller's responsibility when the result is
// re-exported, via MulConst-style rerandomization; plain Add is enough for
// this package's own blind-and-select use, which always multiplies in a
// fresh mask encryption).
func (pub *PublicKey) Add(c1, c2 *big.Int) *big.Int {
	r := new(big.Int).Mul(c1, c2)
	return r.Mod(r, pub.N)
}

// PrivateKey carries the factor p and subgroup order vp needed to recover
// the plaintext from a ciphertext's reduction mod p.
type PrivateKey struct {
	P  *big.Int
	Vp *big.Int
	// Gu = g^vp mod p, the order-u generator the decrypt discrete-log
	// search runs against.
	Gu *big.Int
}

// DGK is a keypair.
type DGK struct {
	*PublicKey
	Private *PrivateKey
}

// KeyGenParams sizes a DGK keypair. PlaintextBits bounds the discrete-log
// search performed at decryption time (cost O(2^(PlaintextBits/2))), so it
// must stay modest; SecurityBits sizes the two blinding subgroup orders vp,
// vq. ModulusBits sizes the two secret primes p, q.
type KeyGenParams struct {
	PlaintextBits int
	SecurityBits  int
	ModulusBits   int
}

// DefaultParams matches a DGK deployment sized for the decision-tree
// attribute domain used by this protocol's comparisons, not the full
// 64-bit masked-share range crypto/paillier packs.
func DefaultParams() KeyGenParams {
	return KeyGenParams{PlaintextBits: 20, SecurityBits: 160, ModulusBits: 1024}
}

// New generates a fresh DGK keypair.
func New(params KeyGenParams) (*DGK, error) {
	u, err := rand.Prime(rand.Reader, params.PlaintextBits)
	if err != nil {
		return nil, err
	}
	vp, err := rand.Prime(rand.Reader, params.SecurityBits)
	if err != nil {
		return nil, err
	}
	vq, err := rand.Prime(rand.Reader, params.SecurityBits)
	if err != nil {
		return nil, err
	}

	primeBits := params.ModulusBits / 2
	p, err := findPrimeWithFactors(primeBits, u, vp)
	if err != nil {
		return nil, err
	}
	q, err := findPrimeWithFactors(primeBits, vq)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).Mul(p, q)
	phi := new(big.Int).Mul(new(big.Int).Sub(p, big1), new(big.Int).Sub(q, big1))

	g, err := findGeneratorOfOrder(n, phi, []*big.Int{u, vp})
	if err != nil {
		return nil, err
	}
	h, err := findGeneratorOfOrder(n, phi, []*big.Int{vp, vq})
	if err != nil {
		return nil, err
	}

	gu := new(big.Int).Exp(g, vp, p)

	return &DGK{
		PublicKey: &PublicKey{N: n, G: g, H: h, U: u},
		Private:   &PrivateKey{P: p, Vp: vp, Gu: gu},
	}, nil
}

// findPrimeWithFactors searches for a prime of the requested bit length
// that is 1 plus a multiple of 2 and every factor in factors - the DGK
// construction needs p = 2*u*vp*k+1 (so u and vp divide the order of
// Z_p^*) and q = 2*vq*k+1 likewise.
func findPrimeWithFactors(bits int, factors ...*big.Int) (*big.Int, error) {
	base := big.NewInt(2)
	for _, f := range factors {
		base = new(big.Int).Mul(base, f)
	}
	kBits := bits - base.BitLen()
	if kBits < 8 {
		kBits = 8
	}
	for i := 0; i < maxGenRetries; i++ {
		k, err := rand.Prime(rand.Reader, kBits)
		if err != nil {
			return nil, err
		}
		cand := new(big.Int).Mul(base, k)
		cand.Add(cand, big1)
		if cand.ProbablyPrime(20) {
			return cand, nil
		}
	}
	return nil, ErrExceedMaxRetry
}

// findGeneratorOfOrder returns an element of Z_n^* whose order is exactly
// the product of the requested factors, by raising a random base to
// phi(n)/product(factors) and rejecting elements whose order turns out
// smaller (checked by testing each factor individually).
func findGeneratorOfOrder(n, phi *big.Int, factors []*big.Int) (*big.Int, error) {
	product := big.NewInt(1)
	for _, f := range factors {
		product.Mul(product, f)
	}
	exp := new(big.Int).Div(phi, product)

	for i := 0; i < maxGenRetries; i++ {
		a, err := rand.Int(rand.Reader, n)
		if err != nil {
			return nil, err
		}
		if a.Sign() == 0 {
			continue
		}
		g := new(big.Int).Exp(a, exp, n)
		if g.Cmp(big1) == 0 {
			continue
		}
		ok := true
		for _, f := range factors {
			cofactor := new(big.Int).Div(product, f)
			if new(big.Int).Exp(g, cofactor, n).Cmp(big1) == 0 {
				ok = false
				break
			}
		}
		if ok {
			return g, nil
		}
	}
	return nil, ErrExceedMaxRetry
}

// Decrypt recovers m in [0, u) from a ciphertext, via reduction mod p
// followed by a baby-step-giant-step discrete-log search base Gu.
func (k *DGK) Decrypt(c *big.Int) (*big.Int, error) {
	cp := new(big.Int).Mod(c, k.Private.P)
	y := new(big.Int).Exp(cp, k.Private.Vp, k.Private.P)
	return bsgs(y, k.Private.Gu, k.Private.P, k.U)
}

// bsgs finds m in [0, bound) such that base^m = target mod p, using the
// standard baby-step-giant-step algorithm.
func bsgs(target, base, p, bound *big.Int) (*big.Int, error) {
	m := new(big.Int).Sqrt(bound)
	m.Add(m, big1)

	table := make(map[string]*big.Int, int(m.Int64())+1)
	babyStep := big.NewInt(1)
	for j := big.NewInt(0); j.Cmp(m) < 0; j.Add(j, big1) {
		table[babyStep.String()] = new(big.Int).Set(j)
		babyStep.Mul(babyStep, base)
		babyStep.Mod(babyStep, p)
	}

	baseInvM := new(big.Int).Exp(base, m, p)
	baseInvM.ModInverse(baseInvM, p)
	if baseInvM == nil {
		return nil, ErrDecryptRange
	}
	gamma := new(big.Int).Set(target)
	for i := big.NewInt(0); i.Cmp(m) < 0; i.Add(i, big1) {
		if j, ok := table[gamma.String()]; ok {
			result := new(big.Int).Mul(i, m)
			result.Add(result, j)
			if result.Cmp(bound) < 0 {
				return result, nil
			}
		}
		gamma.Mul(gamma, baseInvM)
		gamma.Mod(gamma, p)
	}
	return nil, ErrDecryptRange
}
