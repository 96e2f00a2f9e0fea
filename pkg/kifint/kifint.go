// Package kifint は KIFINT アーカイブ（.int ファイル）を読み込むためのパッケージです。
//
// 提供する機能:
//   - ReadArchive / OpenArchive: エントリ表の読み込みと、暗号化されている場合の復号
//   - Lookup: 複数アーカイブのエントリをファイル名で引ける1つの索引に統合
//   - Lookup.Save / LoadLookup: 索引のバイナリキャッシュの保存と読み込み
//   - Extractor: 索引からエントリを探し、データを取り出して復号
//
// 基本的な使い方:
//
//	registry := kifint.DefaultArchiveFormats()
//	format, _ := registry.Lookup("image")
//	lookup, err := kifint.BuildLookup(ctx, installDir, format, kifint.BuildOptions{
//	    Secret:    secret,
//	    Decrypter: crypto.NewKifintBlowfish(),
//	})
//	if err != nil {
//	    return err
//	}
//	data, err := kifint.NewExtractor(lookup, codec).Extract(ctx, "ev_01a.hg3")
package kifint

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// KIFINT アーカイブの定数
const (
	// Signature はアーカイブの識別子 (4バイト目はパディングで比較しない)
	Signature = "KIF"

	// KeyFileName は暗号化鍵の導出にだけ使われる特別なエントリ名
	KeyFileName = "__key__.dat"

	// ProgressInterval は進捗を通知するエントリ数の間隔
	ProgressInterval = 500

	fileNameSize = 64

	// maxEntryCount は壊れたヘッダで巨大な領域を確保しないための上限
	maxEntryCount = 1 << 20
)

// ArchiveHeader はアーカイブの先頭部分です。
type ArchiveHeader struct {
	Signature  [4]byte
	EntryCount int32
}

// ArchiveEntryRecord はディスク上のエントリ1件分のレコードです。
// Info の8バイトはオフセットと長さの組として、また外部の復号ルーチンに渡す
// 生の8バイトとしての2通りに解釈されます。
type ArchiveEntryRecord struct {
	FileName [fileNameSize]byte
	Info     [8]byte
}

// OffsetLength は Info をオフセットと長さとして解釈します。
func (r *ArchiveEntryRecord) OffsetLength() (uint32, int32) {
	return binary.LittleEndian.Uint32(r.Info[0:4]), int32(binary.LittleEndian.Uint32(r.Info[4:8]))
}

// SetOffsetLength はオフセットと長さを Info に書き込みます。
func (r *ArchiveEntryRecord) SetOffsetLength(offset uint32, length int32) {
	binary.LittleEndian.PutUint32(r.Info[0:4], offset)
	binary.LittleEndian.PutUint32(r.Info[4:8], uint32(length))
}

// rawName は NUL 終端までのファイル名のバイト列を返します。
func (r *ArchiveEntryRecord) rawName() []byte {
	if i := bytes.IndexByte(r.FileName[:], 0); i >= 0 {
		return r.FileName[:i]
	}
	return r.FileName[:]
}

// Name はファイル名を Shift-JIS から UTF-8 に変換して返します。
func (r *ArchiveEntryRecord) Name() string {
	return decodeFileName(r.rawName())
}

// SetName はファイル名を Shift-JIS に変換して書き込みます。
// UTF-8 として不正な名前は Name が返す生のバイト列とみなし、そのまま書き込みます。
func (r *ArchiveEntryRecord) SetName(name string) error {
	raw := []byte(name)
	if utf8.ValidString(name) {
		encoded, err := japanese.ShiftJIS.NewEncoder().Bytes(raw)
		if err != nil {
			return err
		}
		raw = encoded
	}
	if len(raw) >= fileNameSize {
		return ErrFileNameTooLong
	}
	r.FileName = [fileNameSize]byte{}
	copy(r.FileName[:], raw)
	return nil
}

// decodeFileName は Shift-JIS のファイル名を UTF-8 に変換します。
// 不正なバイトを含むなど元のバイト列に戻せない場合は、別の名前が同じ文字列に
// まとまらないよう元のバイト列をそのまま使います。
func decodeFileName(raw []byte) string {
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes(decoded)
	if err != nil || !bytes.Equal(encoded, raw) {
		return string(raw)
	}
	return string(decoded)
}

// ArchiveEntry は復号済みのエントリです。構築後は変更されません。
type ArchiveEntry struct {
	FileName string
	Offset   uint32
	Length   int32

	archive *Archive
}

// Archive はエントリが属するアーカイブを返します。
func (e *ArchiveEntry) Archive() *Archive {
	return e.archive
}

// Archive は1つの .int ファイルのエントリ一覧です。
type Archive struct {
	FilePath string
	Entries  []*ArchiveEntry

	fileKey *uint32
}

// Key はファイル鍵を返します。暗号化されていない場合は false を返します。
func (a *Archive) Key() (uint32, bool) {
	if a.fileKey == nil {
		return 0, false
	}
	return *a.fileKey, true
}

// Encrypted はアーカイブが暗号化されているかどうかを返します。
func (a *Archive) Encrypted() bool {
	return a.fileKey != nil
}

func (a *Archive) setKey(key uint32) {
	a.fileKey = &key
}

// addEntry はエントリを作成してアーカイブに追加します。
func (a *Archive) addEntry(name string, offset uint32, length int32) *ArchiveEntry {
	e := &ArchiveEntry{
		FileName: name,
		Offset:   offset,
		Length:   length,
		archive:  a,
	}
	a.Entries = append(a.Entries, e)
	return e
}

// Progress は進捗通知の内容です。
type Progress struct {
	Archive string
	Done    int
	Total   int
}

// ProgressFunc は進捗通知を受け取るコールバックです。
// 通知専用であり、処理の制御には使われません。
type ProgressFunc func(Progress)
