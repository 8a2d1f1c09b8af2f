package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debforge/internal/core"
	"debforge/internal/ports"
	"debforge/internal/types"
)

// DscFileAdapter parses the control-format source-package description
// files emitted by the package build tool. Only the fields the
// pipelines need are read: Source, Version, Files, Checksums-Sha256.
type DscFileAdapter struct{}

func NewDscFileAdapter() DscFileAdapter {
	return DscFileAdapter{}
}

func (a DscFileAdapter) Parse(path string) (types.Dsc, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.Dsc{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no such description file: %s", path)).
			WithCause(err)
	}

	dsc := types.Dsc{}
	members := map[string]*types.DscMember{}
	var order []string
	field := ""
	for _, line := range strings.Split(string(content), "\n") {
		// A signed description carries armor lines; they never look
		// like control fields or continuation entries.
		if strings.HasPrefix(line, "-----") {
			field = ""
			continue
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			entry := strings.Fields(line)
			if len(entry) != 3 {
				continue
			}
			digest, name := entry[0], entry[2]
			m, ok := members[name]
			if !ok {
				m = &types.DscMember{Name: name, Size: entry[1]}
				members[name] = m
				order = append(order, name)
			}
			switch field {
			case "Files":
				m.MD5 = digest
			case "Checksums-Sha256":
				m.SHA256 = digest
			}
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			field = ""
			continue
		}
		field = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch field {
		case "Source":
			dsc.Source = value
		case "Version":
			dsc.Version = value
		}
	}

	if dsc.Source == "" {
		return types.Dsc{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("description file %s has no Source field", path))
	}
	for _, name := range order {
		dsc.Members = append(dsc.Members, *members[name])
	}
	return dsc, nil
}

// Verify re-checks the SHA-256 digest of every member listed by the
// description, resolved next to the description file itself.
func (a DscFileAdapter) Verify(path string) error {
	log.Info().Str("dsc", path).Msg("validating description file")
	dsc, err := a.Parse(path)
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(path)
	for _, member := range dsc.Members {
		if member.SHA256 == "" {
			continue
		}
		rec := types.ChecksumRecord{
			Path:     filepath.Join(baseDir, member.Name),
			Algo:     types.ChecksumAlgoSHA256,
			Expected: member.SHA256,
		}
		if err := core.VerifyChecksum(rec); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.DscReader = DscFileAdapter{}
