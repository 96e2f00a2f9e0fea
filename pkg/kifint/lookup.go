package kifint

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Lookup は複数のアーカイブのエントリをファイル名で引ける索引です。
// ファイル名は索引全体で一意です。
type Lookup struct {
	Archives []*Archive

	entries map[string]*ArchiveEntry
}

// NewLookup は空の Lookup を作成します。
func NewLookup() *Lookup {
	return &Lookup{entries: make(map[string]*ArchiveEntry)}
}

// Merge はアーカイブを索引に統合します。
// 既存のエントリ、または追加するアーカイブ同士でファイル名が重複した場合は
// ErrDuplicateEntry を返し、索引は一切変更されません。
func (l *Lookup) Merge(archives ...*Archive) error {
	staged := make(map[string]*ArchiveEntry)
	for _, a := range archives {
		for _, e := range a.Entries {
			if prev, ok := l.entries[e.FileName]; ok {
				return duplicateError(e, prev)
			}
			if prev, ok := staged[e.FileName]; ok {
				return duplicateError(e, prev)
			}
			staged[e.FileName] = e
		}
	}

	for name, e := range staged {
		l.entries[name] = e
	}
	l.Archives = append(l.Archives, archives...)
	return nil
}

func duplicateError(e, prev *ArchiveEntry) error {
	return newArchiveError("merge", e.archive.FilePath,
		fmt.Errorf("%w: %s (already in %s)", ErrDuplicateEntry, e.FileName, prev.archive.FilePath))
}

// Find はファイル名からエントリを探します。
func (l *Lookup) Find(name string) (*ArchiveEntry, bool) {
	e, ok := l.entries[name]
	return e, ok
}

// Len はエントリ数を返します。
func (l *Lookup) Len() int {
	return len(l.entries)
}

// Names は全エントリのファイル名を昇順で返します。
func (l *Lookup) Names() []string {
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// BuildOptions は索引構築の設定です。
type BuildOptions struct {
	Secret    string
	Decrypter Decrypter

	// Workers は同時に読み込むアーカイブ数です。0 以下なら CPU 数を使います。
	Workers int

	// Progress は各アーカイブの読み込み中に呼ばれます。
	// 複数のアーカイブを並列に読み込むため、同時に呼ばれることがあります。
	Progress ProgressFunc
}

func (o BuildOptions) readOptions() ReadOptions {
	return ReadOptions{Secret: o.Secret, Decrypter: o.Decrypter, Progress: o.Progress}
}

// BuildLookup は installDir 直下の format に一致するアーカイブをすべて読み込み、
// 1つの索引に統合します。
//
// アーカイブの読み込みは並列に行いますが、統合はファイル名順に1つずつ行うため
// 結果は読み込み順に依存しません。いずれかのアーカイブで失敗した場合、または
// ファイル名が重複した場合は索引を返しません。
func BuildLookup(ctx context.Context, installDir string, format ArchiveFormat, opts BuildOptions) (*Lookup, error) {
	paths, err := format.FindArchives(installDir)
	if err != nil {
		return nil, newArchiveError("find archives", installDir, err)
	}
	if len(paths) == 0 {
		return nil, newArchiveError("find archives", installDir, fmt.Errorf("%w: %s", ErrNoArchives, format.Pattern))
	}

	archives, err := readArchives(ctx, paths, opts)
	if err != nil {
		return nil, err
	}

	lookup := NewLookup()
	for _, a := range archives {
		if err := lookup.Merge(a); err != nil {
			return nil, err
		}
	}
	return lookup, nil
}

// readArchives はアーカイブを並列に読み込み、paths と同じ順序で返します。
func readArchives(ctx context.Context, paths []string, opts BuildOptions) ([]*Archive, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	archives := make([]*Archive, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			a, err := OpenArchive(gctx, path, opts.readOptions())
			if err != nil {
				return err
			}
			archives[i] = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return archives, nil
}
