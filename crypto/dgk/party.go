package dgk

import (
	"io"
	"math/big"

	"github.com/privatetree/pdte/crypto/heparty"
)

// Party drives the DGK half of the HGG selection phase when the deployment
// picked DGK over Paillier for its shorter ciphertexts (spec.md section
// 4.2). Unlike Paillier, DGK does not pack: BlindAndSelect emits one
// ciphertext per decision node, selected and additively masked under the
// remote party's public key.
type Party struct {
	*DGK
	remote *PublicKey
}

// NewParty generates a fresh DGK keypair sized by params.
func NewParty(params KeyGenParams) (*Party, error) {
	k, err := New(params)
	if err != nil {
		return nil, err
	}
	return &Party{DGK: k}, nil
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

// Decrypt implements heparty.Party.
func (p *Party) Decrypt(c heparty.Ciphertext) (*big.Int, error) {
	return p.DGK.Decrypt(p.PublicKey.decodeCiphertext(c))
}

// WritePublicKey implements heparty.Party.
func (p *Party) WritePublicKey(w io.Writer) error {
	if err := writeBigInt(w, p.N); err != nil {
		return err
	}
	if err := writeBigInt(w, p.G); err != nil {
		return err
	}
	if err := writeBigInt(w, p.H); err != nil {
		return err
	}
	return writeBigInt(w, p.U)
}

// ReadRemotePublicKey implements heparty.Party.
func (p *Party) ReadRemotePublicKey(r io.Reader) error {
	n, err := readBigInt(r)
	if err != nil {
		return err
	}
	g, err := readBigInt(r)
	if err != nil {
		return err
	}
	h, err := readBigInt(r)
	if err != nil {
		return err
	}
	u, err := readBigInt(r)
	if err != nil {
		return err
	}
	p.remote = &PublicKey{N: n, G: g, H: h, U: u}
	return nil
}

// BlindAndSelect implements heparty.Party. DGK does not pack (spec.md
// 4.2): every selected, masked ciphertext is emitted as its own slot.
func (p *Party) BlindAndSelect(cts []heparty.Ciphertext, selection []int, masks []uint64) ([]heparty.Ciphertext, error) {
	if p.remote == nil {
		return nil, ErrNoRemoteKey
	}
	if len(selection) != len(masks) {
		return nil, ErrInvalidMessage
	}
	pub := p.remote
	out := make([]heparty.Ciphertext, len(selection))
	for i, idx := range selection {
		if idx < 0 || idx >= len(cts) {
			return nil, ErrInvalidMessage
		}
		ct := pub.decodeCiphertext(cts[idx])
		maskBig := new(big.Int).SetUint64(masks[i])
		maskBig.Mod(maskBig, pub.U)
		maskCt, err := pub.Encrypt(maskBig)
		if err != nil {
			return nil, err
		}
		blinded := pub.Add(ct, maskCt)
		out[i] = pub.encodeCiphertext(blinded)
	}
	return out, nil
}

// UnpackAndDecrypt implements heparty.Party. There is nothing to unpack:
// each ciphertext decrypts directly to one masked feature value, reduced
// into uint64 (the plaintext space U is sized so this never overflows, see
// DefaultParams).
func (p *Party) UnpackAndDecrypt(packed []heparty.Ciphertext, numSlots int) ([]uint64, error) {
	if len(packed) != numSlots {
		return nil, ErrInvalidMessage
	}
	out := make([]uint64, numSlots)
	for i, ct := range packed {
		m, err := p.Decrypt(ct)
		if err != nil {
			return nil, err
		}
		out[i] = m.Uint64()
	}
	return out, nil
}
