package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/skillkit/internal/util"
)

func writeSkill(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pdf")
	util.WriteFile(t, filepath.Join(dir, "SKILL.md"), "---\nname: pdf\ndescription: Work with PDF files\nmetadata:\n  version: 1.2.0\n---\n# PDF\n")
	util.WriteFile(t, filepath.Join(dir, "scripts", "extract.sh"), "#!/bin/sh\npdftotext \"$1\"\n")
	util.WriteFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main\n")
	return dir
}

func TestPackUnpack(t *testing.T) {
	dir := writeSkill(t)

	var buf bytes.Buffer
	m, err := Pack(dir, &buf)
	require.NoError(t, err)
	assert.Equal(t, "pdf", m.Name)
	assert.Equal(t, "Work with PDF files", m.Description)
	assert.Equal(t, "1.2.0", m.SkillVersion)
	assert.Equal(t, FormatVersion, m.Version)

	var paths []string
	for _, f := range m.Files {
		paths = append(paths, f.Path)
		assert.Len(t, f.SHA256, 64)
	}
	assert.Equal(t, []string{"pdf/SKILL.md", "pdf/scripts/extract.sh"}, paths)

	dest := t.TempDir()
	got, err := Unpack(bytes.NewReader(buf.Bytes()), dest)
	require.NoError(t, err)
	assert.Equal(t, m.Files, got.Files)
	assert.Equal(t, m.Size(), got.Size())

	data, err := os.ReadFile(filepath.Join(dest, "pdf", "scripts", "extract.sh"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\npdftotext \"$1\"\n", string(data))
	assert.NoDirExists(t, filepath.Join(dest, "pdf", ".git"))
}

func TestPackFile(t *testing.T) {
	dir := writeSkill(t)
	out := filepath.Join(t.TempDir(), "pdf.tar.gz")

	_, err := PackFile(dir, out)
	require.NoError(t, err)
	assert.FileExists(t, out)

	dest := t.TempDir()
	m, err := UnpackFile(out, dest)
	require.NoError(t, err)
	assert.Equal(t, "pdf", m.Name)
	assert.FileExists(t, filepath.Join(dest, "pdf", "SKILL.md"))

	_, err = PackFile(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "x.tar.gz"))
	assert.Error(t, err)
}

// tarball builds an archive by hand so tests can corrupt it.
func tarball(t *testing.T, entries ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: e[0], Mode: 0o644, Size: int64(len(e[1])), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestUnpack_Rejects(t *testing.T) {
	const body = "---\nname: x\n---\n"
	wrongSum := strings.Repeat("0", 64)

	tests := map[string]struct {
		data    []byte
		wantErr error
	}{
		"not gzip": {
			data:    []byte("plain text"),
			wantErr: ErrCorrupt,
		},
		"no manifest": {
			data:    tarball(t, [2]string{"x/SKILL.md", body}),
			wantErr: ErrNoManifest,
		},
		"traversal": {
			data: tarball(t,
				[2]string{ManifestName, `{"name":"x","files":[{"path":"../evil","size":1,"sha256":"00"}]}`},
				[2]string{"../evil", "x"}),
			wantErr: ErrUnsafePath,
		},
		"absolute": {
			data:    tarball(t, [2]string{ManifestName, `{"name":"x","files":[{"path":"/etc/evil","size":1,"sha256":"00"}]}`}),
			wantErr: ErrUnsafePath,
		},
		"checksum mismatch": {
			data: tarball(t,
				[2]string{ManifestName, `{"name":"x","files":[{"path":"x/SKILL.md","size":16,"sha256":"` + wrongSum + `"}]}`},
				[2]string{"x/SKILL.md", body}),
			wantErr: ErrCorrupt,
		},
		"missing file": {
			data:    tarball(t, [2]string{ManifestName, `{"name":"x","files":[{"path":"x/SKILL.md","size":16,"sha256":"00"}]}`}),
			wantErr: ErrCorrupt,
		},
		"too large": {
			data:    tarball(t, [2]string{ManifestName, `{"name":"x","files":[{"path":"x/big","size":999999999999,"sha256":"00"}]}`}),
			wantErr: ErrCorrupt,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dest := t.TempDir()
			_, err := Unpack(bytes.NewReader(tt.data), dest)
			require.ErrorIs(t, err, tt.wantErr)
			assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil"))
		})
	}
}

func TestIsArchive(t *testing.T) {
	tests := map[string]bool{
		"pdf.tar.gz":        true,
		"dist/PDF.TGZ":      true,
		"pdf.zip":           false,
		"anthropics/skills": false,
		"pdf.tar":           false,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, IsArchive(in))
		})
	}
}
