package core

import (
	"fmt"
	"math/big"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debforge/internal/types"
)

// AggregateSignature summarizes a set of bundle members as a single
// hex digest: each member's 128-bit md5 digest, read as an integer, is
// XOR-folded into an all-ones accumulator. XOR is commutative and
// associative, so the result does not depend on member order. It also
// means a member listed an even number of times cancels out of the
// digest entirely; callers must pass each member exactly once.
func AggregateSignature(files []string) (string, error) {
	acc := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	for _, path := range files {
		digest, err := FileDigest(path, types.ChecksumAlgoMD5)
		if err != nil {
			return "", err
		}
		n, ok := new(big.Int).SetString(digest, 16)
		if !ok {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("invalid md5 digest for %s", path))
		}
		acc.Xor(acc, n)
	}
	return fmt.Sprintf("%x", acc), nil
}
