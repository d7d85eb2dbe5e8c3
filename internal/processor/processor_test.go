package processor

import (
	"bytes"
	"io"
	"testing"

	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/yeka/zip"
)

const testPassword = "test-password"

var testKey = []byte("test-key")

func buildZip(t *testing.T, files map[string][]byte, password string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		var (
			fw  io.Writer
			err error
		)
		if password != "" {
			fw, err = w.Encrypt(name, password, zip.StandardEncryption)
		} else {
			fw, err = w.Create(name)
		}
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
	return buf.Bytes()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Classification
	}{
		{"local file header", []byte("PK\x03\x04rest"), PlainArchive},
		{"empty archive", []byte("PK\x05\x06"), PlainArchive},
		{"spanned archive", []byte("PK\x07\x08"), PlainArchive},
		{"obfuscated", []byte{0x12, 0x34, 0x56, 0x78}, Obfuscated},
		{"partial magic", []byte("PK"), Obfuscated},
		{"empty payload", nil, Obfuscated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.data); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestXORTransform_Involution(t *testing.T) {
	data := []byte("some payload that is longer than the key")
	encoded := XORTransform(data, testKey)
	if bytes.Equal(encoded, data) {
		t.Fatal("transform did not change the payload")
	}
	decoded := XORTransform(encoded, testKey)
	if !bytes.Equal(decoded, data) {
		t.Errorf("double transform = %q, want %q", decoded, data)
	}
}

func TestProcessor_Decode(t *testing.T) {
	p := NewProcessor(testKey, testPassword)
	archive := buildZip(t, map[string][]byte{"a.txt": []byte("x")}, "")

	t.Run("valid payload", func(t *testing.T) {
		decoded, err := p.Decode(XORTransform(archive, testKey))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !bytes.Equal(decoded, archive) {
			t.Error("decoded payload differs from original archive")
		}
	})

	t.Run("garbage payload", func(t *testing.T) {
		_, err := p.Decode([]byte("not an encoded archive"))
		if err == nil {
			t.Fatal("Decode() expected error")
		}
		if !goerr.HasTag(err, model.TagDecode) {
			t.Errorf("error is missing the decode tag: %v", err)
		}
	})
}

func TestProcessor_Extract(t *testing.T) {
	p := NewProcessor(testKey, testPassword)
	content := map[string][]byte{
		"model/model.moc3":  []byte("moc"),
		"model/texture.png": []byte("png"),
	}

	t.Run("password protected", func(t *testing.T) {
		files, err := p.Extract(buildZip(t, content, testPassword))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("Extract() returned %d files, want 2", len(files))
		}
		if !bytes.Equal(files["model/model.moc3"], []byte("moc")) {
			t.Error("extracted content differs")
		}
	})

	t.Run("unprotected fallback", func(t *testing.T) {
		files, err := p.Extract(buildZip(t, content, ""))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("Extract() returned %d files, want 2", len(files))
		}
	})

	t.Run("not an archive", func(t *testing.T) {
		_, err := p.Extract([]byte("definitely not a zip"))
		if err == nil {
			t.Fatal("Extract() expected error")
		}
		if !goerr.HasTag(err, model.TagExtract) {
			t.Errorf("error is missing the extract tag: %v", err)
		}
	})

	t.Run("path escape rejected", func(t *testing.T) {
		archive := buildZip(t, map[string][]byte{"../evil.txt": []byte("x")}, "")
		if _, err := p.Extract(archive); err == nil {
			t.Fatal("Extract() accepted a path escaping the archive root")
		}
	})
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string][]byte
		wantModel string
		wantPaths []string
	}{
		{
			name: "root stripped and categories mapped",
			files: map[string][]byte{
				"Hiyori/Hiyori.moc3":                []byte("a"),
				"Hiyori/Hiyori.model3.json":         []byte("b"),
				"Hiyori/smile.exp3.json":            []byte("c"),
				"Hiyori/idle.motion3.json":          []byte("d"),
				"Hiyori/Hiyori.2048/texture_00.png": []byte("e"),
			},
			wantModel: "Hiyori",
			wantPaths: []string{
				"Hiyori.moc3",
				"Hiyori.model3.json",
				"expressions/smile.exp3.json",
				"motions/idle.motion3.json",
				"textures/Hiyori.2048/texture_00.png",
			},
		},
		{
			name: "no shared root keeps layout",
			files: map[string][]byte{
				"model.moc3":       []byte("a"),
				"extra/readme.txt": []byte("b"),
			},
			wantModel: "model",
			wantPaths: []string{"model.moc3", "extra/readme.txt"},
		},
		{
			name: "no descriptor",
			files: map[string][]byte{
				"data/readme.txt": []byte("a"),
			},
			wantModel: UnknownModelName,
			wantPaths: []string{"readme.txt"},
		},
		{
			name: "several descriptors picks first",
			files: map[string][]byte{
				"pkg/beta.moc3":  []byte("a"),
				"pkg/alpha.moc3": []byte("b"),
			},
			wantModel: "alpha",
			wantPaths: []string{"alpha.moc3", "beta.moc3"},
		},
		{
			name: "flattened expression collision gets suffix",
			files: map[string][]byte{
				"pkg/a/smile.exp3.json": []byte("a"),
				"pkg/b/smile.exp3.json": []byte("b"),
			},
			wantModel: UnknownModelName,
			wantPaths: []string{
				"expressions/smile.exp3.json",
				"expressions/smile.exp3_2.json",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, err := Assemble(tt.files)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if pkg.ModelName != tt.wantModel {
				t.Errorf("ModelName = %q, want %q", pkg.ModelName, tt.wantModel)
			}
			if len(pkg.Files) != len(tt.wantPaths) {
				t.Fatalf("Assemble() returned %d files, want %d", len(pkg.Files), len(tt.wantPaths))
			}
			for _, path := range tt.wantPaths {
				if _, ok := pkg.Files[path]; !ok {
					t.Errorf("missing file %q", path)
				}
			}
		})
	}

	t.Run("empty archive", func(t *testing.T) {
		if _, err := Assemble(nil); err == nil {
			t.Fatal("Assemble() expected error for empty input")
		}
	})
}

func TestProcessor_ProcessPackage(t *testing.T) {
	p := NewProcessor(testKey, testPassword)
	archive := buildZip(t, map[string][]byte{
		"Mao/Mao.moc3":       []byte("moc"),
		"Mao/texture_00.png": []byte("png"),
	}, testPassword)

	t.Run("obfuscated payload", func(t *testing.T) {
		pkg, err := p.ProcessPackage(XORTransform(archive, testKey))
		if err != nil {
			t.Fatalf("ProcessPackage() error = %v", err)
		}
		if pkg.ModelName != "Mao" {
			t.Errorf("ModelName = %q, want %q", pkg.ModelName, "Mao")
		}
		if !bytes.Equal(pkg.Files["textures/texture_00.png"], []byte("png")) {
			t.Error("texture content differs")
		}
	})

	t.Run("plain payload", func(t *testing.T) {
		pkg, err := p.ProcessPackage(archive)
		if err != nil {
			t.Fatalf("ProcessPackage() error = %v", err)
		}
		if pkg.ModelName != "Mao" {
			t.Errorf("ModelName = %q, want %q", pkg.ModelName, "Mao")
		}
	})
}
