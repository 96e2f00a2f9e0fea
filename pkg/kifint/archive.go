package kifint

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/shiroemons/go-kifint/pkg/crypto"
)

// ReadOptions はアーカイブ読み込みの設定です。
type ReadOptions struct {
	// Secret はタイトル固有の秘密文字列 (TOC シードの元)
	Secret string

	// Decrypter はエントリ情報の復号に使います。暗号化されたアーカイブでは必須です。
	Decrypter Decrypter

	// Progress は ProgressInterval 件ごとと完了時に呼ばれます。nil でも構いません。
	Progress ProgressFunc
}

// OpenArchive はファイルを開いてエントリ表を読み込みます。
// ファイルはエラーの有無にかかわらず関数を抜ける前に閉じられます。
func OpenArchive(ctx context.Context, path string, opts ReadOptions) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, newArchiveError("open", path, err)
	}
	defer file.Close()

	return ReadArchive(ctx, bufio.NewReader(file), path, opts)
}

// ReadArchive は r からエントリ表を読み込みます。
//
// "__key__.dat" という名前のレコードがあれば暗号化されているとみなし、
// その長さから MT19937 でファイル鍵を導出します。暗号化されている場合、
// それ以外のレコードはディスク上の元の位置 i を使って
//   - ファイル名を TOCSeed(Secret)+i で難読化解除し
//   - オフセットに i を足してから
//   - Decrypter でオフセットと長さを復号
//
// します。"__key__.dat" 自体はエントリ一覧に含まれません。
func ReadArchive(ctx context.Context, r io.Reader, path string, opts ReadOptions) (*Archive, error) {
	var hdr ArchiveHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, newArchiveError("read header", path, err)
	}
	if !bytes.Equal(hdr.Signature[:len(Signature)], []byte(Signature)) {
		return nil, newArchiveError("read header", path, fmt.Errorf("%w: %q", ErrInvalidSignature, hdr.Signature[:]))
	}
	if hdr.EntryCount < 0 || hdr.EntryCount > maxEntryCount {
		return nil, newArchiveError("read header", path, fmt.Errorf("%w: %d", ErrInvalidEntryCount, hdr.EntryCount))
	}

	records := make([]ArchiveEntryRecord, hdr.EntryCount)
	if err := binary.Read(r, binary.LittleEndian, records); err != nil {
		return nil, newArchiveError("read entries", path, err)
	}

	archive := &Archive{
		FilePath: path,
		Entries:  make([]*ArchiveEntry, 0, len(records)),
	}

	keyIndex := findKeyRecord(records)
	if keyIndex >= 0 {
		_, keyLength := records[keyIndex].OffsetLength()
		archive.setKey(crypto.MTGenerate(uint32(keyLength)))

		if opts.Secret == "" {
			return nil, newArchiveError("decrypt entries", path, ErrSecretRequired)
		}
		if opts.Decrypter == nil {
			return nil, newArchiveError("decrypt entries", path, ErrDecrypterRequired)
		}
	}

	fileKey, encrypted := archive.Key()
	tocSeed := crypto.TOCSeed(opts.Secret)
	total := len(records)

	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i%ProgressInterval == 0 && opts.Progress != nil {
			opts.Progress(Progress{Archive: path, Done: i, Total: total})
		}
		if i == keyIndex {
			continue
		}

		rec := &records[i]
		if encrypted {
			crypto.UnobfuscateFileName(rec.FileName[:], tocSeed+uint32(i))

			// 復号前にディスク上の位置の分だけオフセットを補正する
			offset, length := rec.OffsetLength()
			rec.SetOffsetLength(offset+uint32(i), length)

			if err := opts.Decrypter.DecryptEntryInfo(&rec.Info, fileKey); err != nil {
				return nil, newArchiveError("decrypt entries", path, fmt.Errorf("entry %d: %w", i, err))
			}
		}

		offset, length := rec.OffsetLength()
		archive.addEntry(rec.Name(), offset, length)
	}

	if opts.Progress != nil {
		opts.Progress(Progress{Archive: path, Done: total, Total: total})
	}

	return archive, nil
}

// findKeyRecord は "__key__.dat" のレコードの位置を返します。無ければ -1 を返します。
func findKeyRecord(records []ArchiveEntryRecord) int {
	for i := range records {
		if string(records[i].rawName()) == KeyFileName {
			return i
		}
	}
	return -1
}
