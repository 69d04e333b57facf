package source

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MShaffar19/webbundle/internal/pathutil"
	"github.com/MShaffar19/webbundle/internal/xerrors"
)

const (
	DefaultMaxArchiveBytes int64 = 50 << 20
	DefaultMaxFileBytes    int64 = 10 << 20
	DefaultMaxTotalBytes   int64 = 100 << 20
)

// Limits caps what an archive may expand to. Zero fields take the defaults.
type Limits struct {
	MaxArchiveBytes int64
	MaxFileBytes    int64
	MaxTotalBytes   int64
}

func (l Limits) withDefaults() Limits {
	if l.MaxArchiveBytes <= 0 {
		l.MaxArchiveBytes = DefaultMaxArchiveBytes
	}
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = DefaultMaxFileBytes
	}
	if l.MaxTotalBytes <= 0 {
		l.MaxTotalBytes = DefaultMaxTotalBytes
	}
	return l
}

// readLimited reads r fully, failing once more than max bytes arrive.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("content exceeds max size (limit %d bytes)", max)
	}
	return data, nil
}

// extractTarGz writes the regular files and directories of a gzipped tar
// archive under dst. It returns the number of files written.
func extractTarGz(archive []byte, dst string, lim Limits) (int, error) {
	lim = lim.withDefaults()

	gr, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return 0, xerrors.Wrap(err, "open gzip")
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	var files int
	var total int64
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return files, xerrors.Wrap(err, "read tar header")
		}

		target, err := sanitizeTarPath(dst, hdr.Name)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, xerrors.Wrapf(err, "create dir %s", hdr.Name)
			}
		case tar.TypeReg:
			if hdr.Size > lim.MaxFileBytes {
				return files, xerrors.Newf("file %s exceeds max size (%d > %d)", hdr.Name, hdr.Size, lim.MaxFileBytes)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return files, xerrors.Wrapf(err, "create dir for %s", hdr.Name)
			}
			n, err := writeFile(target, tr, lim.MaxFileBytes)
			if err != nil {
				return files, err
			}
			total += n
			if total > lim.MaxTotalBytes {
				return files, xerrors.Newf("total extracted size exceeds limit (%d bytes, max %d)", total, lim.MaxTotalBytes)
			}
			files++
		default:
			return files, xerrors.Newf("unsupported entry in archive: %s (type=%d)", hdr.Name, hdr.Typeflag)
		}
	}
}

// sanitizeTarPath maps an archive entry name to a path inside dst,
// rejecting absolute names and names that climb out of dst.
func sanitizeTarPath(dst, name string) (string, error) {
	if strings.ContainsRune(name, 0) {
		return "", xerrors.Newf("nul byte in tar entry name %q", name)
	}
	slashed := filepath.ToSlash(name)
	if filepath.IsAbs(name) || strings.HasPrefix(slashed, "/") {
		return "", xerrors.Newf("absolute path in tar: %s", name)
	}
	if pathutil.EscapesBase(slashed) {
		return "", xerrors.Newf("path traversal in tar: %s", name)
	}

	target := filepath.Join(dst, filepath.FromSlash(slashed))
	rel, err := filepath.Rel(dst, target)
	if err != nil || pathutil.EscapesBase(filepath.ToSlash(rel)) {
		return "", xerrors.Newf("path escapes destination: %s", name)
	}
	return target, nil
}

func writeFile(path string, r io.Reader, max int64) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, xerrors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, max+1))
	if err != nil {
		return n, xerrors.Wrapf(err, "write %s", path)
	}
	if n > max {
		return n, xerrors.Newf("file too large: %s (%d bytes)", path, n)
	}
	return n, f.Close()
}
