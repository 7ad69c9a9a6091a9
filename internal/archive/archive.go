// Package archive packs a skill folder into a gzipped tarball and unpacks
// it again. Every archive starts with manifest.json, which lists each file
// with its size and SHA-256 so a damaged archive is rejected on unpack.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/parser"
)

// ManifestName is the first entry of every archive.
const ManifestName = "manifest.json"

// FormatVersion is written to new manifests.
const FormatVersion = "1"

// MaxUnpackSize bounds the total bytes written by Unpack.
const MaxUnpackSize = 64 << 20

var (
	// ErrNoManifest means the archive does not start with manifest.json.
	ErrNoManifest = errors.New("archive missing manifest.json")
	// ErrCorrupt means file contents do not match the manifest.
	ErrCorrupt = errors.New("archive corrupted")
	// ErrUnsafePath means an entry would land outside the target directory.
	ErrUnsafePath = errors.New("unsafe path in archive")
)

// Manifest describes a packed skill.
type Manifest struct {
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	SkillVersion string    `json:"skill_version,omitempty"`
	Files        []File    `json:"files"`
}

// File is one packed file. Path is slash-separated and starts with the
// skill name.
type File struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Size is the sum of all file sizes.
func (m *Manifest) Size() int64 {
	var n int64
	for _, f := range m.Files {
		n += f.Size
	}
	return n
}

// IsArchive reports whether p names a file Pack would produce.
func IsArchive(p string) bool {
	lower := strings.ToLower(p)
	return strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz")
}

// Pack writes the skill at dir to w. The skill must load; .git folders,
// symlinks and other non-regular files are left out.
func Pack(dir string, w io.Writer) (*Manifest, error) {
	skill, err := parser.LoadSkill(dir)
	if err != nil {
		return nil, err
	}
	root := skill.Dir
	name := skill.Name
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		name = filepath.Base(root)
	}

	manifest := &Manifest{
		Version:      FormatVersion,
		CreatedAt:    time.Now().UTC(),
		Name:         name,
		Description:  skill.Description,
		SkillVersion: skill.Version(),
	}
	var sources []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			logging.Debug("skipping non-regular file", logging.Path(p))
			return nil
		}
		sum, size, err := hashFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		manifest.Files = append(manifest.Files, File{
			Path:   path.Join(name, filepath.ToSlash(rel)),
			Size:   size,
			SHA256: sum,
		})
		sources = append(sources, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", root, err)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeEntry(tw, ManifestName, manifest.CreatedAt, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, err
	}
	for i, f := range manifest.Files {
		if err := copyFileEntry(tw, f, sources[i], manifest.CreatedAt); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finish tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("finish gzip: %w", err)
	}
	logging.Debug("packed skill", logging.Skill(name), logging.Count(len(manifest.Files)))
	return manifest, nil
}

// PackFile writes the archive to out, replacing it only once packing
// succeeded.
func PackFile(dir, out string) (*Manifest, error) {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".skillkit-pack-*")
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	m, err := Pack(dir, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}
	return m, nil
}

// Unpack extracts r below dest and checks every file against the manifest.
// Entries not listed in the manifest are ignored.
func Unpack(r io.Reader, dest string) (*Manifest, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	defer func() { _ = gz.Close() }()
	tr := tar.NewReader(gz)

	hdr, err := tr.Next()
	if err != nil || hdr.Name != ManifestName {
		return nil, ErrNoManifest
	}
	var manifest Manifest
	if err := json.NewDecoder(io.LimitReader(tr, 1<<20)).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrCorrupt, err)
	}
	if manifest.Size() > MaxUnpackSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", ErrCorrupt, manifest.Size())
	}

	want := make(map[string]File, len(manifest.Files))
	for _, f := range manifest.Files {
		if _, err := safeJoin(dest, f.Path); err != nil {
			return nil, err
		}
		want[f.Path] = f
	}

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		f, ok := want[hdr.Name]
		if !ok || hdr.Typeflag != tar.TypeReg {
			continue
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return nil, err
		}
		if err := extractFile(tr, target, f); err != nil {
			return nil, err
		}
		delete(want, hdr.Name)
	}
	if len(want) > 0 {
		missing := slices.Sorted(maps.Keys(want))
		return nil, fmt.Errorf("%w: %s missing", ErrCorrupt, strings.Join(missing, ", "))
	}
	return &manifest, nil
}

// UnpackFile opens the archive at p and unpacks it below dest.
func UnpackFile(p, dest string) (*Manifest, error) {
	// #nosec G304 - p is an archive path supplied by the user
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Unpack(f, dest)
}

func safeJoin(dest, name string) (string, error) {
	clean := path.Clean(name)
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(dest, filepath.FromSlash(clean)), nil
}

func extractFile(r io.Reader, target string, f File) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	// #nosec G304 - target is checked by safeJoin
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), io.LimitReader(r, f.Size+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if n != f.Size || hex.EncodeToString(h.Sum(nil)) != f.SHA256 {
		return fmt.Errorf("%w: %s checksum mismatch", ErrCorrupt, f.Path)
	}
	return nil
}

func hashFile(p string) (string, int64, error) {
	// #nosec G304 - p comes from walking the skill directory
	f, err := os.Open(p)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func copyFileEntry(tw *tar.Writer, f File, src string, modTime time.Time) error {
	// #nosec G304 - src comes from walking the skill directory
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	return writeEntry(tw, f.Path, modTime, in, f.Size)
}

func writeEntry(tw *tar.Writer, name string, modTime time.Time, r io.Reader, size int64) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     size,
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := io.CopyN(tw, r, size); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
