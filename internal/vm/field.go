package vm

import (
	"fmt"
	"math/big"
)

// FieldModulus is the prime of the target field, 2^64 - 2^32 + 1.
var FieldModulus = func() *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), 64)
	p.Sub(p, new(big.Int).Lsh(big.NewInt(1), 32))
	return p.Add(p, big.NewInt(1))
}()

func reduce(v *big.Int) *big.Int {
	return new(big.Int).Mod(v, FieldModulus)
}

// fold applies an arithmetic operator to two reduced field elements.
func fold(op string, a, b *big.Int) (*big.Int, error) {
	r := new(big.Int)
	switch op {
	case "+":
		r.Add(a, b)
	case "-":
		r.Sub(a, b)
	case "*":
		r.Mul(a, b)
	case "/":
		if b.Sign() == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		inv := new(big.Int).ModInverse(b, FieldModulus)
		r.Mul(a, inv)
	default:
		return nil, fmt.Errorf("operator %s is not arithmetic", op)
	}
	return reduce(r), nil
}
