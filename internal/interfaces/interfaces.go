// Package interfaces は kifint コマンドで使用するインターフェースを定義します
package interfaces

import (
	"context"

	"github.com/shiroemons/go-kifint/pkg/hg3"
)

// FileSystem はファイルシステム操作のインターフェース
type FileSystem interface {
	WriteFile(filename string, data []byte, perm uint32) error
	MkdirAll(path string, perm uint32) error
}

// Extractor は索引からエントリを取り出すインターフェースです
// *kifint.Extractor が実装します。
type Extractor interface {
	Names() []string
	Extract(ctx context.Context, name string) ([]byte, error)
	ExtractMany(ctx context.Context, names []string, fn func(name string, data []byte) error) error
	ParseHG3(ctx context.Context, name string, expand bool) (*hg3.Container, []byte, error)
	DecodeHG3(ctx context.Context, name string, expand bool) (*hg3.Container, []*hg3.Frame, error)
}

// Logger はログ出力のインターフェース
type Logger interface {
	Printf(format string, a ...any)
}
