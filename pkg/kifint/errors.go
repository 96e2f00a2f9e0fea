package kifint

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature はアーカイブの識別子が "KIF" でない場合のエラー
	ErrInvalidSignature = errors.New("kifint: invalid signature")

	// ErrInvalidEntryCount はエントリ数が負の場合のエラー
	ErrInvalidEntryCount = errors.New("kifint: invalid entry count")

	// ErrSecretRequired は暗号化されたアーカイブに秘密文字列が指定されていない場合のエラー
	ErrSecretRequired = errors.New("kifint: secret required for encrypted archive")

	// ErrDecrypterRequired は暗号化されたアーカイブに復号器が指定されていない場合のエラー
	ErrDecrypterRequired = errors.New("kifint: decrypter required for encrypted archive")

	// ErrFileNameTooLong はファイル名がレコードに収まらない場合のエラー
	ErrFileNameTooLong = errors.New("kifint: file name too long")

	// ErrDuplicateEntry は統合時に同じファイル名が複数のアーカイブに存在した場合のエラー
	ErrDuplicateEntry = errors.New("kifint: duplicate entry")

	// ErrNoArchives は対象のアーカイブが1つも見つからない場合のエラー
	ErrNoArchives = errors.New("kifint: no archives found")

	// ErrUnknownFormat は登録されていないアーカイブ種別の場合のエラー
	ErrUnknownFormat = errors.New("kifint: unknown archive format")

	// ErrEntryNotFound は索引にファイル名が存在しない場合のエラー
	ErrEntryNotFound = errors.New("kifint: entry not found")

	// ErrInvalidEntry はエントリの長さが不正な場合のエラー
	ErrInvalidEntry = errors.New("kifint: invalid entry")

	// ErrInvalidCacheMagic はキャッシュの識別子が一致しない場合のエラー
	ErrInvalidCacheMagic = errors.New("kifint: invalid lookup cache magic")

	// ErrCacheVersion はキャッシュのバージョンが一致しない場合のエラー（再構築が必要）
	ErrCacheVersion = errors.New("kifint: unsupported lookup cache version")

	// ErrCorruptCache はキャッシュの内容が壊れている場合のエラー
	ErrCorruptCache = errors.New("kifint: corrupt lookup cache")
)

// ArchiveError はアーカイブファイルに関するエラー
type ArchiveError struct {
	Op   string // 実行していた操作
	Path string // ファイルパス
	Err  error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *ArchiveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *ArchiveError) Unwrap() error {
	return e.Err
}

func newArchiveError(op, path string, err error) error {
	return &ArchiveError{Op: op, Path: path, Err: err}
}
