package paillier

import (
	"crypto/rand"
	"math/big"
)

// RandomInt returns a uniform random integer in [0, n).
func RandomInt(n *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, n)
}

// RandomCoprimeInt returns a uniform random integer in [0, n) coprime to n.
func RandomCoprimeInt(n *big.Int) (*big.Int, error) {
	for i := 0; i < maxGenRetries; i++ {
		r, err := RandomInt(n)
		if err != nil {
			return nil, err
		}
		if isRelativePrime(r, n) {
			return r, nil
		}
	}
	return nil, ErrExceedMaxRetry
}

func isRelativePrime(a, b *big.Int) bool {
	return new(big.Int).GCD(nil, nil, a, b).Cmp(big1) == 0
}

// Lcm returns the least common multiple of a and b.
func Lcm(a, b *big.Int) (*big.Int, error) {
	g := new(big.Int).GCD(nil, nil, a, b)
	if g.Sign() <= 0 {
		return nil, ErrInvalidMessage
	}
	t := new(big.Int).Div(a, g)
	return t.Mul(t, b), nil
}
