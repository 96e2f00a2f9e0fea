// Package fileutil はファイル操作のユーティリティ関数を提供します
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OSFileSystem は実際のOSファイルシステムを使用する実装
type OSFileSystem struct{}

// NewOSFileSystem は新しいOSFileSystemを作成します
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// WriteFile はファイルを書き込みます
func (fs *OSFileSystem) WriteFile(filename string, data []byte, perm uint32) error {
	return os.WriteFile(filename, data, os.FileMode(perm))
}

// MkdirAll はディレクトリを作成します
func (fs *OSFileSystem) MkdirAll(path string, perm uint32) error {
	return os.MkdirAll(path, os.FileMode(perm))
}

// FileSystem は SaveToFile が使うファイル操作
type FileSystem interface {
	WriteFile(filename string, data []byte, perm uint32) error
	MkdirAll(path string, perm uint32) error
}

// SaveToFile は出力先ディレクトリを作成してからファイルを保存します
func SaveToFile(fs FileSystem, outputPath string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrCreateDirectory, err)
	}
	if err := fs.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteContent, err)
	}
	return nil
}

// OutputPath はエントリ名から outputDir 以下の保存先パスを生成します。
// エントリ名の区切り文字は '/' と '\' のどちらも受け付け、outputDir の外に出るパスは拒否します。
func OutputPath(outputDir, entryName string) (string, error) {
	name := strings.ReplaceAll(entryName, `\`, "/")
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, entryName)
	}
	return filepath.Join(outputDir, clean), nil
}

// FrameFileName はフレームの保存用ファイル名を生成します。
// 例: ev_01a.hg3 の画像0フレーム1 → ev_01a_0000_0001.png
// 単一フレームの場合は番号を付けません。
func FrameFileName(entryName string, imageIndex, frameIndex int, single bool, ext string) string {
	base := strings.TrimSuffix(entryName, filepath.Ext(entryName))
	if single {
		return fmt.Sprintf("%s.%s", base, ext)
	}
	return fmt.Sprintf("%s_%04d_%04d.%s", base, imageIndex, frameIndex, ext)
}

// DefaultCachePath はアーカイブ種別ごとの索引キャッシュの既定のパスを返します。
func DefaultCachePath(installDir, archiveType string) string {
	return filepath.Join(installDir, strings.ToLower(archiveType)+".lookup")
}
