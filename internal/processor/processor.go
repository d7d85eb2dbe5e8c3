package processor

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/yeka/zip"
)

// Production transform parameters. Tests inject their own.
const (
	// DefaultXORKey is the repeating key applied to obfuscated package
	// payloads.
	DefaultXORKey = "AkqeZ-f,7fgx*7WU$6mWZ_98x-nWtdw4Jjky"

	// DefaultZipPassword is the fixed password tried first during
	// extraction.
	DefaultZipPassword = "LrND6UfK(j-NmN7tTb+2S&6J56rEdfHJ3+pA"
)

// UnknownModelName is used when an archive contains no model descriptor.
const UnknownModelName = "unknown_model"

// Classification is the result of sniffing a payload's leading bytes.
type Classification int

const (
	// Obfuscated means the payload must be decoded before extraction.
	Obfuscated Classification = iota

	// PlainArchive means the payload is already a ZIP archive.
	PlainArchive
)

// zipMagics are the canonical ZIP signatures: local file header, empty
// archive, and spanned archive.
var zipMagics = [][]byte{
	{'P', 'K', 0x03, 0x04},
	{'P', 'K', 0x05, 0x06},
	{'P', 'K', 0x07, 0x08},
}

// Processor decodes, extracts and assembles package archives.
type Processor struct {
	xorKey   []byte
	password string
}

// NewProcessor creates a Processor with the given transform parameters.
func NewProcessor(xorKey []byte, password string) *Processor {
	return &Processor{xorKey: xorKey, password: password}
}

// NewDefaultProcessor creates a Processor with the production key and
// password.
func NewDefaultProcessor() *Processor {
	return NewProcessor([]byte(DefaultXORKey), DefaultZipPassword)
}

// Classify inspects the first bytes of data against the ZIP signatures.
// Anything that does not match is assumed obfuscated.
func Classify(data []byte) Classification {
	for _, magic := range zipMagics {
		if bytes.HasPrefix(data, magic) {
			return PlainArchive
		}
	}
	return Obfuscated
}

// XORTransform applies the repeating-key exclusive-or transform. The
// transform is an involution: applying it twice with the same key
// restores the input.
func XORTransform(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// Decode removes the obfuscation transform and verifies the result is a
// recognizable archive.
func (p *Processor) Decode(data []byte) ([]byte, error) {
	decoded := XORTransform(data, p.xorKey)
	if Classify(decoded) != PlainArchive {
		return nil, goerr.New("decoded payload is not a ZIP archive",
			goerr.T(model.TagDecode))
	}
	return decoded, nil
}

// Extract unpacks a ZIP archive from memory. The fixed password is
// applied to encrypted entries first; if that pass fails the archive is
// re-read without a password so already-unprotected archives still
// extract. Directory entries and path escapes are skipped.
func (p *Processor) Extract(data []byte) (map[string][]byte, error) {
	files, pwErr := extractAll(data, p.password)
	if pwErr == nil {
		return files, nil
	}

	files, plainErr := extractAll(data, "")
	if plainErr == nil {
		return files, nil
	}

	return nil, goerr.Wrap(plainErr, "extraction failed with and without password",
		goerr.T(model.TagExtract), goerr.V("password_error", pwErr.Error()))
}

func extractAll(data []byte, password string) (map[string][]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte, len(reader.File))
	for _, f := range reader.File {
		name := path.Clean(f.Name)
		if name == "." || strings.HasPrefix(name, "..") || path.IsAbs(f.Name) {
			return nil, fmt.Errorf("invalid file path in archive: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			continue
		}

		if f.IsEncrypted() {
			if password == "" {
				return nil, fmt.Errorf("encrypted entry %s with no password", f.Name)
			}
			f.SetPassword(password)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}

		files[name] = content
	}

	return files, nil
}

// Assemble turns an extracted file set into an ExtractedPackage.
//
// The model name is the base name of the archive's model descriptor
// (.moc3 file); when several exist the lexicographically first wins, and
// when none exists the name is UnknownModelName. A single shared root
// folder is stripped, then files are grouped into fixed category
// subfolders:
//
//	*.exp3.json    -> expressions/
//	*.motion3.json -> motions/
//	*.png          -> textures/ (keeping any folder layout below it)
//
// Everything else keeps its relative path at the package root.
func Assemble(files map[string][]byte) (*model.ExtractedPackage, error) {
	if len(files) == 0 {
		return nil, goerr.New("empty archive", goerr.T(model.TagExtract))
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	root := sharedRoot(names)

	pkg := &model.ExtractedPackage{
		ModelName: UnknownModelName,
		Files:     make(map[string][]byte, len(files)),
	}

	for _, name := range names {
		rel := strings.TrimPrefix(name, root)
		if pkg.ModelName == UnknownModelName && strings.HasSuffix(rel, ".moc3") {
			pkg.ModelName = strings.TrimSuffix(path.Base(rel), ".moc3")
		}

		dest := categorize(rel)
		dest = uniqueDest(pkg.Files, dest)
		pkg.Files[dest] = files[name]
	}

	return pkg, nil
}

// ProcessPackage runs the whole pipeline on a raw package payload:
// classify, decode if needed, extract, assemble.
func (p *Processor) ProcessPackage(data []byte) (*model.ExtractedPackage, error) {
	archive := data
	if Classify(data) == Obfuscated {
		decoded, err := p.Decode(data)
		if err != nil {
			return nil, err
		}
		archive = decoded
	}

	files, err := p.Extract(archive)
	if err != nil {
		return nil, err
	}

	return Assemble(files)
}

// sharedRoot returns the "dir/" prefix common to all names, or "" when
// the archive has no single top-level folder.
func sharedRoot(names []string) string {
	var root string
	for _, name := range names {
		i := strings.Index(name, "/")
		if i < 0 {
			return ""
		}
		prefix := name[:i+1]
		if root == "" {
			root = prefix
		} else if root != prefix {
			return ""
		}
	}
	return root
}

// categorize maps an archive-relative path to its destination path.
func categorize(rel string) string {
	base := path.Base(rel)
	switch {
	case strings.HasSuffix(base, ".exp3.json"):
		return "expressions/" + base
	case strings.HasSuffix(base, ".motion3.json"):
		return "motions/" + base
	case strings.HasSuffix(base, ".png"):
		return "textures/" + rel
	default:
		return rel
	}
}

// uniqueDest resolves destination collisions with a stable numeric
// suffix: name.ext, name_2.ext, name_3.ext, ...
func uniqueDest(existing map[string][]byte, dest string) string {
	if _, ok := existing[dest]; !ok {
		return dest
	}
	ext := path.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, ok := existing[candidate]; !ok {
			return candidate
		}
	}
}
