package fetch

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/blackwell-systems/pinbuild/internal/forge"
)

// tarEntry describes one entry for buildTarGz.
type tarEntry struct {
	name     string // slash path inside the archive
	content  string
	mode     int64
	typeflag byte
	linkname string
}

// buildTarGz assembles a gzipped tarball from entries.
func buildTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     e.mode,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Size:     int64(len(e.content)),
		}
		if e.typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0644
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader(%s) failed: %v", e.name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.content)); err != nil {
				t.Fatalf("Write(%s) failed: %v", e.name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close failed: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close failed: %v", err)
	}
	return buf.Bytes()
}

// writeArchive writes archive bytes to a temp file and returns its path.
func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.tar.gz")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// TestExtractArchive_StripsTopDir verifies the forge wrapper directory is
// removed and contents land at the destination root.
func TestExtractArchive_StripsTopDir(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "repo-v1.0.0/", typeflag: tar.TypeDir, mode: 0755},
		{name: "repo-v1.0.0/go.mod", content: "module example.com/repo\n"},
		{name: "repo-v1.0.0/cmd/", typeflag: tar.TypeDir, mode: 0755},
		{name: "repo-v1.0.0/cmd/main.go", content: "package main\n"},
	})

	dest := t.TempDir()
	if err := extractArchive(writeArchive(t, data), forge.FormatTarGz, dest); err != nil {
		t.Fatalf("extractArchive failed: %v", err)
	}

	gomod, err := os.ReadFile(filepath.Join(dest, "go.mod"))
	if err != nil {
		t.Fatalf("go.mod not extracted at root: %v", err)
	}
	if string(gomod) != "module example.com/repo\n" {
		t.Errorf("go.mod content = %q; want original content", gomod)
	}
	if _, err := os.Stat(filepath.Join(dest, "cmd", "main.go")); err != nil {
		t.Errorf("nested file not extracted: %v", err)
	}
}

// TestExtractArchive_PreservesExecBit verifies executable entries stay
// executable after extraction.
func TestExtractArchive_PreservesExecBit(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "repo/script.sh", content: "#!/bin/sh\n", mode: 0755},
		{name: "repo/plain.txt", content: "text\n", mode: 0644},
	})

	dest := t.TempDir()
	if err := extractArchive(writeArchive(t, data), forge.FormatTarGz, dest); err != nil {
		t.Fatalf("extractArchive failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dest, "script.sh"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("script.sh should be executable after extraction")
	}

	info, err = os.Stat(filepath.Join(dest, "plain.txt"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode()&0o111 != 0 {
		t.Error("plain.txt should not be executable after extraction")
	}
}

// TestExtractArchive_RejectsTraversal verifies entries escaping the
// destination are refused.
func TestExtractArchive_RejectsTraversal(t *testing.T) {
	tests := []struct {
		name    string
		entries []tarEntry
	}{
		{
			"dot-dot path",
			[]tarEntry{{name: "repo/../../etc/passwd", content: "x"}},
		},
		{
			"escaping symlink",
			[]tarEntry{{name: "repo/link", typeflag: tar.TypeSymlink, linkname: "../../outside"}},
		},
		{
			"absolute symlink target",
			[]tarEntry{{name: "repo/link", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildTarGz(t, tt.entries)
			err := extractArchive(writeArchive(t, data), forge.FormatTarGz, t.TempDir())
			if err == nil {
				t.Fatal("extractArchive should refuse escaping entries")
			}
			if !strings.Contains(err.Error(), "escape") && !strings.Contains(err.Error(), "absolute") {
				t.Errorf("error %q should mention the escape", err.Error())
			}
		})
	}
}

// TestExtractArchive_InternalSymlink verifies symlinks within the tree are
// extracted as symlinks.
func TestExtractArchive_InternalSymlink(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "repo/real.txt", content: "data"},
		{name: "repo/link.txt", typeflag: tar.TypeSymlink, linkname: "real.txt"},
	})

	dest := t.TempDir()
	if err := extractArchive(writeArchive(t, data), forge.FormatTarGz, dest); err != nil {
		t.Fatalf("extractArchive failed: %v", err)
	}

	target, err := os.Readlink(filepath.Join(dest, "link.txt"))
	if err != nil {
		t.Fatalf("Readlink failed: %v", err)
	}
	if target != "real.txt" {
		t.Errorf("symlink target = %q; want real.txt", target)
	}
}

// TestStripTopDir covers the wrapper-directory stripping rules.
func TestStripTopDir(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"repo-1.0/go.mod", "go.mod", true},
		{"repo-1.0/cmd/main.go", "cmd/main.go", true},
		{"repo-1.0/", "", false},
		{"repo-1.0", "", false},
		{"./repo-1.0/go.mod", "go.mod", true},
	}
	for _, tt := range tests {
		got, ok := stripTopDir(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("stripTopDir(%q) = (%q, %v); want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
