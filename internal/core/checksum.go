package core

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debforge/internal/types"
)

// FileDigest streams the file at path through the named digest and
// returns the lowercase hex sum.
func FileDigest(path string, algo types.ChecksumAlgo) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("cannot open %s for checksum", path)).
			WithCause(err)
	}
	defer f.Close()

	var h hash.Hash
	switch algo {
	case types.ChecksumAlgoMD5:
		h = md5.New()
	case types.ChecksumAlgoSHA256:
		h = sha256.New()
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported checksum algorithm: %s", algo))
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read %s for checksum", path)).
			WithCause(err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumMatches reports whether the file named by the record exists
// and its digest equals the expected value. Any read failure counts as
// a non-match.
func ChecksumMatches(rec types.ChecksumRecord) bool {
	if rec.Expected == "" {
		return false
	}
	digest, err := FileDigest(rec.Path, rec.Algo)
	if err != nil {
		return false
	}
	return digest == rec.Expected
}

// VerifyChecksum is ChecksumMatches as a fatal check: a mismatch or an
// unreadable file is an error naming the path and both digests.
func VerifyChecksum(rec types.ChecksumRecord) error {
	digest, err := FileDigest(rec.Path, rec.Algo)
	if err != nil {
		return err
	}
	if digest != rec.Expected {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("%s checksum mismatch for %s: got %s, want %s", rec.Algo, rec.Path, digest, rec.Expected))
	}
	return nil
}

// StringMD5 returns the md5 hex digest of a string, used for metadata
// content checksums.
func StringMD5(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// StringSHA256 returns the sha256 hex digest of a string.
func StringSHA256(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
