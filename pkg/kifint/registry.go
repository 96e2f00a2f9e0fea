package kifint

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ArchiveFormat はアーカイブの種別と、そのファイル名のパターンです。
type ArchiveFormat struct {
	Name        string
	Pattern     string // 例: "image*.int"
	Description string
}

// Match はファイル名がパターンに一致するかを大文字小文字を区別せずに判定します。
func (f ArchiveFormat) Match(fileName string) bool {
	ok, err := filepath.Match(strings.ToLower(f.Pattern), strings.ToLower(fileName))
	return err == nil && ok
}

// FindArchives は dir 直下のパターンに一致するファイルを名前順に返します。
func (f ArchiveFormat) FindArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !f.Match(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// ArchiveFormatRegistry はアーカイブ種別の一覧です。
// 起動時に一度だけ作成し、必要な処理へ引き渡して使います。
type ArchiveFormatRegistry struct {
	formats []ArchiveFormat
	byName  map[string]int
}

// NewArchiveFormatRegistry は指定された種別で ArchiveFormatRegistry を作成します。
// 名前が重複している場合はエラーを返します。
func NewArchiveFormatRegistry(formats ...ArchiveFormat) (*ArchiveFormatRegistry, error) {
	r := &ArchiveFormatRegistry{
		formats: make([]ArchiveFormat, 0, len(formats)),
		byName:  make(map[string]int, len(formats)),
	}
	for _, f := range formats {
		key := strings.ToLower(f.Name)
		if _, ok := r.byName[key]; ok {
			return nil, fmt.Errorf("duplicate archive format %q", f.Name)
		}
		r.byName[key] = len(r.formats)
		r.formats = append(r.formats, f)
	}
	return r, nil
}

// DefaultArchiveFormats は既知のアーカイブ種別を登録した ArchiveFormatRegistry を返します。
func DefaultArchiveFormats() *ArchiveFormatRegistry {
	r, err := NewArchiveFormatRegistry(
		ArchiveFormat{"image", "image*.int", "HG-3 images and sprites"},
		ArchiveFormat{"update", "update*.int", "patched resources"},
		ArchiveFormat{"scene", "scene*.int", "scene scripts"},
		ArchiveFormat{"config", "config*.int", "engine configuration"},
		ArchiveFormat{"fes", "fes*.int", "fes scripts"},
		ArchiveFormat{"system", "system*.int", "system resources"},
		ArchiveFormat{"bgm", "bgm*.int", "background music"},
		ArchiveFormat{"se", "se*.int", "sound effects"},
		ArchiveFormat{"voice", "voice*.int", "voice clips"},
		ArchiveFormat{"movie", "movie*.int", "movies"},
		ArchiveFormat{"patch", "patch*.int", "patch archives"},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup は名前から種別を探します。
func (r *ArchiveFormatRegistry) Lookup(name string) (ArchiveFormat, bool) {
	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return ArchiveFormat{}, false
	}
	return r.formats[i], true
}

// Find は名前から種別を探し、見つからなければ ErrUnknownFormat を返します。
func (r *ArchiveFormatRegistry) Find(name string) (ArchiveFormat, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return ArchiveFormat{}, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return f, nil
}

// Formats は登録順の種別一覧を返します。
func (r *ArchiveFormatRegistry) Formats() []ArchiveFormat {
	return slices.Clone(r.formats)
}
