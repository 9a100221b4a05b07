package paillier

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/privatetree/pdte/crypto/heparty"
)

const (
	// statisticalParam is the extra bitwidth folded into each packed
	// slot to statistically hide carries between adjacent slots, as in
	// the original implementation's packing scheme.
	statisticalParam = 40
	// shareBits is the width of one packed slot: a 64-bit masked value
	// plus the statistical buffer above.
	shareBits = 64 + statisticalParam
)

// Party drives the Paillier half of the HGG selection phase. It owns a
// keypair (generated or loaded from disk) and, once ReadRemotePublicKey has
// run, the counterparty's public parameters.
type Party struct {
	*Paillier
	remote *PublicKey
}

// NewParty generates a fresh keypair, or loads one cached on disk for the
// requested key size under cacheDir. The cache file is named
// paillier_key_<bits>.bin, the Go analogue of the original's raw GMP key
// export/import.
func NewParty(bits int, cacheDir string) (*Party, error) {
	if cacheDir != "" {
		if p, err := loadCachedKey(bits, cacheDir); err == nil {
			return &Party{Paillier: p}, nil
		}
	}
	p, err := New(bits)
	if err != nil {
		return nil, err
	}
	if cacheDir != "" {
		if err := storeCachedKey(p, bits, cacheDir); err != nil {
			return nil, fmt.Errorf("paillier: caching key: %w", err)
		}
	}
	return &Party{Paillier: p}, nil
}

func cacheFilePath(bits int, dir string) string {
	return filepath.Join(dir, fmt.Sprintf("paillier_key_%d.bin", bits))
}

func loadCachedKey(bits int, dir string) (*Paillier, error) {
	f, err := os.Open(cacheFilePath(bits, dir))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := readBigInt(f)
	if err != nil {
		return nil, err
	}
	q, err := readBigInt(f)
	if err != nil {
		return nil, err
	}
	return paillierFromPQ(p, q)
}

func storeCachedKey(p *Paillier, bits int, dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp := cacheFilePath(bits, dir) + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := writeBigInt(f, p.Private.p); err != nil {
		f.Close()
		return err
	}
	if err := writeBigInt(f, p.Private.q); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, cacheFilePath(bits, dir))
}

// paillierFromPQ rebuilds a full keypair, including the CRT fields, from its
// two prime factors.
func paillierFromPQ(p, q *big.Int) (*Paillier, error) {
	n := new(big.Int).Mul(p, q)
	g := new(big.Int).Add(n, big1)
	pMinus1 := new(big.Int).Sub(p, big1)
	qMinus1 := new(big.Int).Sub(q, big1)
	lambda, err := Lcm(pMinus1, qMinus1)
	if err != nil {
		return nil, err
	}
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

// Bits implements heparty.Party.
func (p *Party) Bits() int {
	return p.N.BitLen()
}

// Encrypt implements heparty.Party.
func (p *Party) Encrypt(m *big.Int) (heparty.Ciphertext, error) {
	c, err := p.PublicKey.Encrypt(m)
	if err != nil {
		return nil, err
	}
	return p.PublicKey.encodeCiphertext(c), nil
}

// EncryptVector implements heparty.Party.
func (p *Party) EncryptVector(plaintexts []*big.Int) ([]heparty.Ciphertext, error) {
	out := make([]heparty.Ciphertext, len(plaintexts))
	for i, m := range plaintexts {
		c, err := p.Encrypt(m)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Decrypt implements heparty.Party, using the CRT fast path.
func (p *Party) Decrypt(c heparty.Ciphertext) (*big.Int, error) {
	return p.DecryptCRT(p.PublicKey.decodeCiphertext(c))
}

// ReadRemotePublicKey implements heparty.Party.
func (p *Party) ReadRemotePublicKey(r io.Reader) error {
	pub, err := ReadPublicKey(r)
	if err != nil {
		return err
	}
	p.remote = pub
	return nil
}

// batchSize returns how many shareBits-wide slots fit in one ciphertext
// under the given modulus size, mirroring keybits/(64+40) from the original
// packing scheme.
func batchSize(bits int) int {
	b := bits / shareBits
	if b < 1 {
		b = 1
	}
	return b
}

// BlindAndSelect implements heparty.Party. It runs against the remote
// public key: cts were produced by the counterparty's EncryptVector, and
// the result stays under that same key so only the counterparty can open
// it. The server never needs its own private key for this step.
func (p *Party) BlindAndSelect(cts []heparty.Ciphertext, selection []int, masks []uint64) ([]heparty.Ciphertext, error) {
	if p.remote == nil {
		return nil, ErrNoRemoteKey
	}
	if len(selection) != len(masks) {
		return nil, ErrInvalidMessage
	}
	pub := p.remote
	bs := batchSize(pub.N.BitLen())

	selected := make([]*big.Int, len(selection))
	for i, idx := range selection {
		if idx < 0 || idx >= len(cts) {
			return nil, ErrInvalidMessage
		}
		ct := pub.decodeCiphertext(cts[idx])
		mask := new(big.Int).SetUint64(masks[i])
		blindFactor := new(big.Int).Exp(pub.G, mask, pub.NSquare) // (n+1)^mask = Enc(mask, r=1)
		blinded, err := pub.Add(ct, blindFactor)
		if err != nil {
			return nil, err
		}
		selected[i] = blinded
	}

	nBatch := (len(selected) + bs - 1) / bs
	packed := make([]heparty.Ciphertext, nBatch)
	for b := 0; b < nBatch; b++ {
		acc := big.NewInt(1)
		for j := 0; j < bs; j++ {
			idx := b*bs + j
			if idx >= len(selected) {
				break
			}
			shift := new(big.Int).Lsh(big1, uint(shareBits*j))
			term, err := pub.MulConst(selected[idx], shift)
			if err != nil {
				return nil, err
			}
			var err2 error
			acc, err2 = pub.Add(acc, term)
			if err2 != nil {
				return nil, err2
			}
		}
		packed[b] = pub.encodeCiphertext(acc)
	}
	return packed, nil
}

// UnpackAndDecrypt implements heparty.Party. It decrypts each packed
// ciphertext with the local private key, then slices it back into
// numSlots shareBits-wide chunks, truncating every chunk to its low 64
// bits (the masked feature value; the top statisticalParam bits are
// discarded once they have done their job of absorbing packing carries).
func (p *Party) UnpackAndDecrypt(packed []heparty.Ciphertext, numSlots int) ([]uint64, error) {
	bs := batchSize(p.N.BitLen())
	out := make([]uint64, 0, numSlots)
	slotMask := new(big.Int).Sub(new(big.Int).Lsh(big1, shareBits), big1)
	valueMask := new(big.Int).SetUint64(^uint64(0))

	for _, ct := range packed {
		plain, err := p.Decrypt(ct)
		if err != nil {
			return nil, err
		}
		for j := 0; j < bs && len(out) < numSlots; j++ {
			slot := new(big.Int).Rsh(plain, uint(shareBits*j))
			slot.And(slot, slotMask)
			slot.And(slot, valueMask) // truncate to the low 64 value bits
			out = append(out, slot.Uint64())
		}
	}
	if len(out) != numSlots {
		return nil, ErrInvalidMessage
	}
	return out, nil
}
