package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"

	"debforge/internal/types"
)

// ParseVersion splits a full debian version string into epoch, upstream
// version, and debian revision, validating it first.
func ParseVersion(value string) (types.Version, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return types.Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("version is empty")
	}
	if _, err := debversion.NewVersion(trimmed); err != nil {
		return types.Version{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid debian version: %s", trimmed)).
			WithCause(err)
	}

	v := types.Version{Full: trimmed}
	rest := trimmed
	if idx := strings.Index(rest, ":"); idx != -1 {
		v.Epoch = rest[:idx]
		rest = rest[idx+1:]
	}
	// The upstream version may itself contain hyphens; the revision is
	// everything after the last one.
	if idx := strings.LastIndex(rest, "-"); idx != -1 {
		v.Revision = rest[idx+1:]
		rest = rest[:idx]
	}
	v.Upstream = rest
	return v, nil
}
