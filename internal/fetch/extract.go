package fetch

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/blackwell-systems/pinbuild/internal/forge"
)

// extractArchive unpacks a tar.gz or tar.xz archive into destDir, stripping
// the single top-level directory forges wrap release tarballs in.
func extractArchive(archivePath, format, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("cannot open archive: %w", err)
	}
	defer f.Close()

	var decompressed io.Reader
	switch format {
	case forge.FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("cannot read gzip stream: %w", err)
		}
		defer gz.Close()
		decompressed = gz
	case forge.FormatTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("cannot read xz stream: %w", err)
		}
		decompressed = xzr
	default:
		return fmt.Errorf("unsupported archive format %q", format)
	}

	return untarStripped(tar.NewReader(decompressed), destDir)
}

// untarStripped writes tar entries under destDir with the first path
// component removed. Entries that would escape destDir are rejected.
func untarStripped(tr *tar.Reader, destDir string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("corrupt archive: %w", err)
		}

		rel, ok := stripTopDir(hdr.Name)
		if !ok {
			continue // the top-level directory entry itself
		}
		if err := checkEntryPath(rel); err != nil {
			return err
		}
		target := filepath.Join(destDir, filepath.FromSlash(rel))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("cannot create directory for %s: %w", target, err)
			}
			mode := os.FileMode(0o644)
			if hdr.FileInfo().Mode()&0o111 != 0 {
				mode = 0o755
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if err != nil {
				return fmt.Errorf("cannot create %s: %w", target, err)
			}
			_, err = io.Copy(out, tr)
			closeErr := out.Close()
			if err != nil {
				return fmt.Errorf("cannot write %s: %w", target, err)
			}
			if closeErr != nil {
				return fmt.Errorf("cannot close %s: %w", target, closeErr)
			}
		case tar.TypeSymlink:
			if err := checkLinkTarget(rel, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("cannot create directory for %s: %w", target, err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("cannot create symlink %s: %w", target, err)
			}
		case tar.TypeXGlobalHeader:
			// pax global header (git archive emits one); nothing to write.
		default:
			return fmt.Errorf("unsupported entry type %c for %s in archive", hdr.Typeflag, hdr.Name)
		}
	}
}

// stripTopDir removes the leading path component. ok is false when nothing
// remains (the top-level directory entry itself).
func stripTopDir(name string) (string, bool) {
	name = strings.TrimPrefix(name, "./")
	_, rest, found := strings.Cut(name, "/")
	if !found || rest == "" {
		return "", false
	}
	return rest, true
}

// checkEntryPath rejects archive paths that would escape the destination.
func checkEntryPath(rel string) error {
	if strings.HasPrefix(rel, "/") {
		return fmt.Errorf("archive entry %q has an absolute path", rel)
	}
	clean := filepath.ToSlash(filepath.Clean(rel))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("archive entry %q escapes the extraction directory", rel)
	}
	return nil
}

// checkLinkTarget rejects symlinks that point outside the extracted tree.
func checkLinkTarget(rel, linkname string) error {
	if strings.HasPrefix(linkname, "/") {
		return fmt.Errorf("archive symlink %q has an absolute target %q", rel, linkname)
	}
	joined := filepath.ToSlash(filepath.Clean(filepath.Join(filepath.Dir(rel), linkname)))
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return fmt.Errorf("archive symlink %q target %q escapes the extraction directory", rel, linkname)
	}
	return nil
}
