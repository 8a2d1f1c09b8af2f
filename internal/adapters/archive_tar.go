package adapters

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"debforge/internal/ports"
)

// TarArchiveAdapter reads and writes the tarball flavors the pipelines
// deal in. The codec is chosen by file extension: gz/tgz, bz2 (read
// only), xz, zst, and plain tar. Unknown extensions default to gzip on
// both sides.
type TarArchiveAdapter struct{}

func NewTarArchiveAdapter() TarArchiveAdapter {
	return TarArchiveAdapter{}
}

func (a TarArchiveAdapter) openReader(tarball string) (*tar.Reader, func() error, error) {
	f, err := os.Open(tarball)
	if err != nil {
		return nil, nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no such tarball: %s", tarball)).
			WithCause(err)
	}
	name := filepath.Base(tarball)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, wrapCodecError(tarball, err)
		}
		return tar.NewReader(zr), func() error {
			zr.Close()
			return f.Close()
		}, nil
	case strings.HasSuffix(name, ".tar.bz2"):
		return tar.NewReader(bzip2.NewReader(f)), f.Close, nil
	case strings.HasSuffix(name, ".tar.xz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, wrapCodecError(tarball, err)
		}
		return tar.NewReader(xr), f.Close, nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, wrapCodecError(tarball, err)
		}
		return tar.NewReader(zr), func() error {
			zr.Close()
			return f.Close()
		}, nil
	case strings.HasSuffix(name, ".tar"):
		return tar.NewReader(f), f.Close, nil
	}
	// Unknown extensions, the bundle's .patch included, mirror Create's
	// default and are treated as gzip.
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, wrapCodecError(tarball, err)
	}
	return tar.NewReader(zr), func() error {
		zr.Close()
		return f.Close()
	}, nil
}

func wrapCodecError(tarball string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("cannot decompress %s", tarball)).
		WithCause(err)
}

// TopDir returns the single top-level directory every member of the
// tarball sits under, or "" when the content is flat or spread across
// multiple top-level names.
func (a TarArchiveAdapter) TopDir(tarball string) (string, error) {
	tr, closeFn, err := a.openReader(tarball)
	if err != nil {
		return "", err
	}
	defer closeFn()

	tops := map[string]struct{}{}
	hasNested := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", wrapCodecError(tarball, err)
		}
		name := normalizeMemberName(hdr.Name)
		if name == "" {
			continue
		}
		parts := strings.SplitN(name, "/", 2)
		tops[parts[0]] = struct{}{}
		if len(parts) == 2 && parts[1] != "" {
			hasNested = true
		}
	}
	if len(tops) == 1 && hasNested {
		for top := range tops {
			return top, nil
		}
	}
	return "", nil
}

// Extract unpacks the tarball into destDir, optionally stripping the
// first path component. Absolute member names and parent-directory
// escapes are rejected.
func (a TarArchiveAdapter) Extract(tarball string, destDir string, stripTop bool) error {
	tr, closeFn, err := a.openReader(tarball)
	if err != nil {
		return err
	}
	defer closeFn()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapCodecError(tarball, err)
		}
		name := normalizeMemberName(hdr.Name)
		if name == "" {
			continue
		}
		if stripTop {
			parts := strings.SplitN(name, "/", 2)
			if len(parts) < 2 || parts[1] == "" {
				continue
			}
			name = parts[1]
		}
		target, err := secureJoin(destDir, name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode).Perm()|0o700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

// Create packs members (paths relative to baseDir) into a new tarball.
// The compression follows the tarball extension; unknown extensions,
// including the bundle's .patch, are written gzip-compressed.
func (a TarArchiveAdapter) Create(tarball string, baseDir string, members []string) error {
	f, err := os.Create(tarball)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot create tarball %s", tarball)).
			WithCause(err)
	}
	defer f.Close()

	var tw *tar.Writer
	var closeCompressor func() error
	name := filepath.Base(tarball)
	switch {
	case strings.HasSuffix(name, ".tar"):
		tw = tar.NewWriter(f)
		closeCompressor = func() error { return nil }
	case strings.HasSuffix(name, ".tar.xz"):
		xw, err := xz.NewWriter(f)
		if err != nil {
			return wrapCodecError(tarball, err)
		}
		tw = tar.NewWriter(xw)
		closeCompressor = xw.Close
	case strings.HasSuffix(name, ".tar.zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return wrapCodecError(tarball, err)
		}
		tw = tar.NewWriter(zw)
		closeCompressor = zw.Close
	case strings.HasSuffix(name, ".tar.bz2"):
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("bzip2 tarball creation is not supported")
	default:
		zw := gzip.NewWriter(f)
		tw = tar.NewWriter(zw)
		closeCompressor = zw.Close
	}

	for _, member := range members {
		if err := addToTar(tw, baseDir, member); err != nil {
			tw.Close()
			closeCompressor()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := closeCompressor(); err != nil {
		return err
	}
	return f.Sync()
}

func addToTar(tw *tar.Writer, baseDir string, member string) error {
	root := filepath.Join(baseDir, member)
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no such tar member: %s", path)).
				WithCause(err)
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
}

// ExtractBySuffix extracts the last member matching each suffix into
// destDir, preserving the member's path. Every suffix must match
// something.
func (a TarArchiveAdapter) ExtractBySuffix(tarball string, destDir string, suffixes []string) ([]string, error) {
	tr, closeFn, err := a.openReader(tarball)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	type match struct {
		name string
		data []byte
	}
	matches := map[string]*match{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapCodecError(tarball, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := normalizeMemberName(hdr.Name)
		for _, suffix := range suffixes {
			if !strings.HasSuffix(name, suffix) {
				continue
			}
			var buf bytes.Buffer
			if _, err := io.Copy(&buf, tr); err != nil {
				return nil, wrapCodecError(tarball, err)
			}
			matches[suffix] = &match{name: name, data: buf.Bytes()}
			break
		}
	}

	var paths []string
	for _, suffix := range suffixes {
		m, ok := matches[suffix]
		if !ok {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("unable to find %s inside %s", suffix, filepath.Base(tarball)))
		}
		target, err := secureJoin(destDir, m.name)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(target, m.data, 0o755); err != nil {
			return nil, err
		}
		paths = append(paths, target)
	}
	return paths, nil
}

func normalizeMemberName(name string) string {
	name = strings.TrimPrefix(name, "./")
	return strings.Trim(name, "/")
}

func secureJoin(destDir string, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("absolute member name in tarball: %s", name))
	}
	target := filepath.Join(destDir, name)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("tarball member escapes destination: %s", name))
	}
	return target, nil
}

var _ ports.Archive = TarArchiveAdapter{}
