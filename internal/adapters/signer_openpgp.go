package adapters

import (
	"crypto"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debforge/internal/ports"
)

// OpenPGPSigner produces the bundle's detached signature over the
// concatenated member files. When no formal key is configured (or the
// key file is absent) a generated development key signs instead and
// the substitution is reported to the caller, never treated as fatal.
type OpenPGPSigner struct {
	KeyPath    string
	Passphrase string
}

func NewOpenPGPSigner(keyPath string, passphrase string) OpenPGPSigner {
	return OpenPGPSigner{KeyPath: keyPath, Passphrase: passphrase}
}

func (s OpenPGPSigner) SignDetached(files []string, outPath string) (bool, error) {
	entity, devFallback, err := s.entity()
	if err != nil {
		return false, err
	}

	handles := make([]*os.File, 0, len(files))
	readers := make([]io.Reader, 0, len(files))
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("cannot open %s for signing", file)).
				WithCause(err)
		}
		handles = append(handles, f)
		readers = append(readers, f)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot create signature file %s", outPath)).
			WithCause(err)
	}
	defer out.Close()

	err = openpgp.ArmoredDetachSign(out, entity, io.MultiReader(readers...), &packet.Config{
		DefaultHash: crypto.SHA256,
	})
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create detached signature").
			WithCause(err)
	}
	return devFallback, nil
}

func (s OpenPGPSigner) entity() (*openpgp.Entity, bool, error) {
	if s.KeyPath != "" {
		entity, err := s.loadEntity()
		if err == nil {
			return entity, false, nil
		}
		if !os.IsNotExist(err) {
			return nil, false, err
		}
		log.Warn().Str("key", s.KeyPath).Msg("formal signing key not found, substituting development key")
	}
	entity, err := openpgp.NewEntity("debforge development", "development signing key", "dev@debforge.invalid", nil)
	if err != nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to generate development key").
			WithCause(err)
	}
	return entity, true, nil
}

func (s OpenPGPSigner) loadEntity() (*openpgp.Entity, error) {
	keyFile, err := os.Open(s.KeyPath)
	if err != nil {
		return nil, err
	}
	defer keyFile.Close()

	entities, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		if _, err := keyFile.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		entities, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("failed to read signing key %s", s.KeyPath)).
				WithCause(err)
		}
	}
	if len(entities) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("no keys found in %s", s.KeyPath))
	}
	entity := entities[0]
	if s.Passphrase != "" && entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
		if err := entity.PrivateKey.Decrypt([]byte(s.Passphrase)); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to decrypt signing key").
				WithCause(err)
		}
	}
	return entity, nil
}

var _ ports.Signer = OpenPGPSigner{}
