// Package testutil はテスト用の KIFINT アーカイブと HG-3 コンテナを組み立てるヘルパーです。
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/japanese"

	"github.com/shiroemons/go-kifint/pkg/crypto"
)

const (
	recordSize   = 72
	nameSize     = 64
	keyFileName  = "__key__.dat"
	headerLength = 8
)

// File はアーカイブに格納するファイル
type File struct {
	Name string
	Data []byte
}

// Encrypter はテスト用アーカイブの暗号化に使うルーチン
type Encrypter interface {
	EncryptEntryInfo(info *[8]byte, fileKey uint32) error
	EncryptData(buf []byte, fileKey uint32) error
}

// ArchiveOptions はアーカイブの組み立て設定
type ArchiveOptions struct {
	// Encrypter が nil でなければ "__key__.dat" を含む暗号化アーカイブを作成します
	Encrypter Encrypter
	Secret    string

	// KeyLength は鍵レコードの長さ (ファイル鍵のシード)
	KeyLength int32

	// KeyIndex は鍵レコードの位置。範囲外の場合は末尾に置きます
	KeyIndex int
}

// FileKey は鍵レコードの長さから導出されるファイル鍵を返します。
func (o ArchiveOptions) FileKey() uint32 {
	return crypto.MTGenerate(uint32(o.KeyLength))
}

// BuildArchive は KIFINT アーカイブのバイト列を組み立てます。
// データはエントリ表の直後にファイル順で配置されます。
func BuildArchive(files []File, opts ArchiveOptions) ([]byte, error) {
	encrypted := opts.Encrypter != nil
	count := len(files)
	keyIndex := -1
	if encrypted {
		count++
		keyIndex = opts.KeyIndex
		if keyIndex < 0 || keyIndex >= count {
			keyIndex = count - 1
		}
	}

	fileKey := opts.FileKey()
	tocSeed := crypto.TOCSeed(opts.Secret)

	var table, data bytes.Buffer
	dataStart := headerLength + recordSize*count
	next := 0

	for i := range count {
		var name [nameSize]byte
		var info [8]byte

		if i == keyIndex {
			copy(name[:], keyFileName)
			binary.LittleEndian.PutUint32(info[4:8], uint32(opts.KeyLength))
			table.Write(name[:])
			table.Write(info[:])
			continue
		}

		f := files[next]
		next++

		raw, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(f.Name))
		if err != nil {
			return nil, err
		}
		if len(raw) >= nameSize {
			return nil, fmt.Errorf("file name too long: %s", f.Name)
		}
		copy(name[:], raw)

		payload := bytes.Clone(f.Data)
		offset := uint32(dataStart + data.Len())
		binary.LittleEndian.PutUint32(info[0:4], offset)
		binary.LittleEndian.PutUint32(info[4:8], uint32(len(payload)))

		if encrypted {
			crypto.ObfuscateFileName(name[:], tocSeed+uint32(i))
			if err := opts.Encrypter.EncryptEntryInfo(&info, fileKey); err != nil {
				return nil, err
			}
			// 読み込み時に位置の分だけ足されるので、あらかじめ引いておく
			stored := binary.LittleEndian.Uint32(info[0:4]) - uint32(i)
			binary.LittleEndian.PutUint32(info[0:4], stored)

			if err := opts.Encrypter.EncryptData(payload, fileKey); err != nil {
				return nil, err
			}
		}

		table.Write(name[:])
		table.Write(info[:])
		data.Write(payload)
	}

	var out bytes.Buffer
	out.WriteString("KIF\x00")
	binary.Write(&out, binary.LittleEndian, int32(count))
	out.Write(table.Bytes())
	out.Write(data.Bytes())
	return out.Bytes(), nil
}

// RawRecord はエントリ表のレコードをそのまま指定するためのもの
type RawRecord struct {
	Name   []byte
	Offset uint32
	Length int32
}

// BuildRawArchive は与えられたレコードだけからなるアーカイブを組み立てます。
func BuildRawArchive(signature string, records []RawRecord) []byte {
	var out bytes.Buffer
	var sig [4]byte
	copy(sig[:], signature)
	out.Write(sig[:])
	binary.Write(&out, binary.LittleEndian, int32(len(records)))
	for _, r := range records {
		var name [nameSize]byte
		copy(name[:], r.Name)
		out.Write(name[:])
		binary.Write(&out, binary.LittleEndian, r.Offset)
		binary.Write(&out, binary.LittleEndian, r.Length)
	}
	return out.Bytes()
}

// WriteArchive はアーカイブを dir/name に書き出してパスを返します。
func WriteArchive(dir, name string, files []File, opts ArchiveOptions) (string, error) {
	data, err := BuildArchive(files, opts)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
