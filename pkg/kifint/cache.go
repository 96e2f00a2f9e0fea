package kifint

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// 索引キャッシュの定数
const (
	// LookupCacheMagic はキャッシュファイルの先頭12バイト
	LookupCacheMagic = "KIFINTLOOKUP"

	// LookupCacheVersion はキャッシュの形式のバージョン。一致しないキャッシュは作り直す
	LookupCacheVersion int32 = 1

	maxCacheStringLength = 4096
)

// cacheWriter は最初のエラーを保持し、以降の書き込みを無視します。
type cacheWriter struct {
	w   *bufio.Writer
	err error
	buf [binary.MaxVarintLen64]byte
}

func (cw *cacheWriter) write(v any) {
	if cw.err != nil {
		return
	}
	cw.err = binary.Write(cw.w, binary.LittleEndian, v)
}

func (cw *cacheWriter) writeString(s string) {
	if cw.err != nil {
		return
	}
	n := binary.PutUvarint(cw.buf[:], uint64(len(s)))
	if _, cw.err = cw.w.Write(cw.buf[:n]); cw.err != nil {
		return
	}
	_, cw.err = cw.w.WriteString(s)
}

// Save は索引を w に書き出します。
// アーカイブのパスは installDir からの相対パス（区切りは '/'）で保存されます。
func (l *Lookup) Save(w io.Writer, installDir string) error {
	cw := &cacheWriter{w: bufio.NewWriter(w)}

	cw.write([]byte(LookupCacheMagic))
	cw.write(LookupCacheVersion)
	cw.write(int32(len(l.Archives)))

	for _, a := range l.Archives {
		rel, err := filepath.Rel(installDir, a.FilePath)
		if err != nil {
			return newArchiveError("save lookup", a.FilePath, err)
		}
		key, hasKey := a.Key()

		cw.writeString(filepath.ToSlash(rel))
		cw.write(hasKey)
		cw.write(key)
		cw.write(int32(len(a.Entries)))
		for _, e := range a.Entries {
			cw.writeString(e.FileName)
			cw.write(e.Offset)
			cw.write(e.Length)
		}
	}

	if cw.err != nil {
		return cw.err
	}
	return cw.w.Flush()
}

// LoadLookup は Save で書き出した索引を読み込みます。
// アーカイブのパスは installDir を基準に復元されます。
//
// 識別子が違う場合は ErrInvalidCacheMagic、バージョンが違う場合は ErrCacheVersion を返します。
func LoadLookup(r io.Reader, installDir string) (*Lookup, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(LookupCacheMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, err
	}
	if string(magic) != LookupCacheMagic {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCacheMagic, magic)
	}

	var version int32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != LookupCacheVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCacheVersion, version, LookupCacheVersion)
	}

	var archiveCount int32
	if err := binary.Read(br, binary.LittleEndian, &archiveCount); err != nil {
		return nil, err
	}
	if archiveCount < 0 || archiveCount > maxEntryCount {
		return nil, fmt.Errorf("%w: archive count %d", ErrCorruptCache, archiveCount)
	}

	archives := make([]*Archive, 0, archiveCount)
	for range archiveCount {
		a, err := readCachedArchive(br, installDir)
		if err != nil {
			return nil, err
		}
		archives = append(archives, a)
	}

	lookup := NewLookup()
	if err := lookup.Merge(archives...); err != nil {
		return nil, err
	}
	return lookup, nil
}

func readCachedArchive(br *bufio.Reader, installDir string) (*Archive, error) {
	rel, err := readCacheString(br)
	if err != nil {
		return nil, err
	}

	var head struct {
		HasKey     bool
		Key        uint32
		EntryCount int32
	}
	if err := binary.Read(br, binary.LittleEndian, &head); err != nil {
		return nil, err
	}
	if head.EntryCount < 0 || head.EntryCount > maxEntryCount {
		return nil, fmt.Errorf("%w: entry count %d", ErrCorruptCache, head.EntryCount)
	}

	a := &Archive{
		FilePath: filepath.Join(installDir, filepath.FromSlash(rel)),
		Entries:  make([]*ArchiveEntry, 0, head.EntryCount),
	}
	if head.HasKey {
		a.setKey(head.Key)
	}

	for range head.EntryCount {
		name, err := readCacheString(br)
		if err != nil {
			return nil, err
		}
		var info struct {
			Offset uint32
			Length int32
		}
		if err := binary.Read(br, binary.LittleEndian, &info); err != nil {
			return nil, err
		}
		a.addEntry(name, info.Offset, info.Length)
	}
	return a, nil
}

func readCacheString(br *bufio.Reader) (string, error) {
	n, err := binary.ReadUvarint(br)
	if err != nil {
		return "", err
	}
	if n > maxCacheStringLength {
		return "", fmt.Errorf("%w: string length %d", ErrCorruptCache, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// SaveLookupFile は索引をファイルに保存します。
// 一時ファイルに書き出してから置き換えるため、途中で失敗しても既存のキャッシュは壊れません。
func SaveLookupFile(l *Lookup, path, installDir string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return newArchiveError("save lookup", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return newArchiveError("save lookup", path, err)
	}
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := l.Save(tmp, installDir); err != nil {
		return newArchiveError("save lookup", path, err)
	}
	if err := tmp.Close(); err != nil {
		return newArchiveError("save lookup", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		success = true
		return newArchiveError("save lookup", path, err)
	}
	success = true
	return nil
}

// LoadLookupFile はファイルから索引を読み込みます。
func LoadLookupFile(path, installDir string) (*Lookup, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, newArchiveError("load lookup", path, err)
	}
	defer file.Close()

	lookup, err := LoadLookup(file, installDir)
	if err != nil {
		return nil, newArchiveError("load lookup", path, err)
	}
	return lookup, nil
}

// LoadOrBuildLookup はキャッシュがあれば読み込み、無い・古い・壊れている場合は
// アーカイブから索引を作り直してキャッシュに保存します。
// 2番目の戻り値はキャッシュから読み込んだかどうかです。
func LoadOrBuildLookup(ctx context.Context, cachePath, installDir string, format ArchiveFormat, opts BuildOptions) (*Lookup, bool, error) {
	lookup, err := LoadLookupFile(cachePath, installDir)
	if err == nil {
		return lookup, true, nil
	}
	if !isStaleCache(err) {
		return nil, false, err
	}

	lookup, err = BuildLookup(ctx, installDir, format, opts)
	if err != nil {
		return nil, false, err
	}
	if err := SaveLookupFile(lookup, cachePath, installDir); err != nil {
		return nil, false, err
	}
	return lookup, false, nil
}

// isStaleCache はキャッシュを作り直せば解決するエラーかどうかを判定します。
func isStaleCache(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, ErrInvalidCacheMagic) ||
		errors.Is(err, ErrCacheVersion) ||
		errors.Is(err, ErrCorruptCache) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
