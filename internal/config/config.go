// Package config は kifint コマンドの設定管理を行います
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
)

const Version = "0.1.0"

// サブコマンド
const (
	CommandList    = "list"
	CommandExtract = "extract"
	CommandInfo    = "info"
	CommandDecode  = "decode"
)

// Commands はサポートしているサブコマンドの一覧
var Commands = []string{CommandList, CommandExtract, CommandInfo, CommandDecode}

var (
	// ErrNoCommand はサブコマンドが指定されていない場合のエラー
	ErrNoCommand = errors.New("サブコマンドを指定してください (list, extract, info, decode)")

	// ErrUnknownCommand は不明なサブコマンドの場合のエラー
	ErrUnknownCommand = errors.New("不明なサブコマンドです")

	// ErrInstallDirRequired はインストール先が指定されていない場合のエラー
	ErrInstallDirRequired = errors.New("--install でゲームのインストール先を指定してください")

	// ErrInvalidScale は拡大率が不正な場合のエラー
	ErrInvalidScale = errors.New("--scale には 0 より大きい値を指定してください")

	// ErrInvalidFormat は出力形式が不正な場合のエラー
	ErrInvalidFormat = errors.New("--format には png または bmp を指定してください")
)

// Config はアプリケーションの設定を保持します
type Config struct {
	Command     string
	Names       []string // 対象のエントリ名 (パターン可)。空なら全件
	InstallDir  string
	Secret      string
	ArchiveType string
	CachePath   string
	OutputDir   string
	Expand      bool
	Format      string
	Scale       float64
	Workers     int
	Rebuild     bool
	DebugMode   bool
	ShowVersion bool
}

const usage = `Usage: kifint [options] <command> [names...]

Commands:
  list      索引のエントリ名を表示します
  extract   エントリを取り出して保存します
  info      HG-3 画像の情報を表示します
  decode    HG-3 画像のフレームを PNG/BMP で保存します

Options:
  --install, -i string   game install directory
  --secret, -s string    title secret used for file name decryption
  --type, -t string      archive type (default "image")
  --cache, -c string     lookup cache path (default: <install>/<type>.lookup)
  --output, -o string    output directory (default ".")
  --expand, -e           place frames on the full canvas
  --format, -f string    output image format: png or bmp (default "png")
  --scale float          scale factor for decoded frames (default 1)
  --workers, -w int      number of archives read in parallel (default: CPU count)
  --rebuild              ignore the lookup cache and rebuild it
  --debug, -d            enable debug output
  --version, -v          show version information
`

// ParseFlags はコマンドライン引数を解析して設定を返します
// フラグはサブコマンドの前後どちらにも書けます。
func ParseFlags(args []string, output io.Writer) (*Config, error) {
	config := &Config{}

	fs := flag.NewFlagSet("kifint", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, usage)
	}

	fs.StringVar(&config.InstallDir, "install", "", "game install directory")
	fs.StringVar(&config.InstallDir, "i", "", "game install directory (shorthand)")

	fs.StringVar(&config.Secret, "secret", "", "title secret used for file name decryption")
	fs.StringVar(&config.Secret, "s", "", "title secret (shorthand)")

	fs.StringVar(&config.ArchiveType, "type", "image", "archive type")
	fs.StringVar(&config.ArchiveType, "t", "image", "archive type (shorthand)")

	fs.StringVar(&config.CachePath, "cache", "", "lookup cache path")
	fs.StringVar(&config.CachePath, "c", "", "lookup cache path (shorthand)")

	fs.StringVar(&config.OutputDir, "output", ".", "output directory")
	fs.StringVar(&config.OutputDir, "o", ".", "output directory (shorthand)")

	fs.BoolVar(&config.Expand, "expand", false, "place frames on the full canvas")
	fs.BoolVar(&config.Expand, "e", false, "place frames on the full canvas (shorthand)")

	fs.StringVar(&config.Format, "format", "png", "output image format")
	fs.StringVar(&config.Format, "f", "png", "output image format (shorthand)")

	fs.Float64Var(&config.Scale, "scale", 1, "scale factor for decoded frames")

	fs.IntVar(&config.Workers, "workers", 0, "number of archives read in parallel")
	fs.IntVar(&config.Workers, "w", 0, "number of archives read in parallel (shorthand)")

	fs.BoolVar(&config.Rebuild, "rebuild", false, "ignore the lookup cache and rebuild it")

	fs.BoolVar(&config.DebugMode, "debug", false, "enable debug output")
	fs.BoolVar(&config.DebugMode, "d", false, "enable debug output (shorthand)")

	fs.BoolVar(&config.ShowVersion, "version", false, "show version information")
	fs.BoolVar(&config.ShowVersion, "v", false, "show version information (shorthand)")

	// サブコマンドの後ろのフラグも解析できるよう、位置引数を集めながら繰り返す
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}

	if config.ShowVersion {
		return config, nil
	}
	if err := config.setPositional(positional); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) setPositional(positional []string) error {
	if len(positional) == 0 {
		return ErrNoCommand
	}
	c.Command = strings.ToLower(positional[0])
	c.Names = positional[1:]
	return nil
}

// Validate は設定の整合性を確認します
func (c *Config) Validate() error {
	if !slices.Contains(Commands, c.Command) {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, c.Command)
	}
	if c.InstallDir == "" {
		return ErrInstallDirRequired
	}
	if c.Scale <= 0 {
		return ErrInvalidScale
	}
	c.Format = strings.ToLower(c.Format)
	if c.Format != "png" && c.Format != "bmp" {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, c.Format)
	}
	return nil
}

// HandleVersion はバージョン表示を処理します
// 表示した場合は true を返します。
func HandleVersion(w io.Writer, showVersion bool) bool {
	if showVersion {
		fmt.Fprintf(w, "kifint version %s\n", Version)
		return true
	}
	return false
}

// DebugLogger はデバッグ出力を管理します
// 並列の読み込みや保存から呼ばれても行が混ざらないようにロックします
type DebugLogger struct {
	enabled bool
	mu      sync.Mutex
	out     io.Writer
}

// NewDebugLogger は標準エラー出力へ書き出す DebugLogger を作成します
func NewDebugLogger(enabled bool) *DebugLogger {
	return NewDebugLoggerTo(os.Stderr, enabled)
}

// NewDebugLoggerTo は出力先を指定して DebugLogger を作成します
func NewDebugLoggerTo(w io.Writer, enabled bool) *DebugLogger {
	return &DebugLogger{enabled: enabled, out: w}
}

// Enabled はデバッグモードが有効かどうかを返します
func (d *DebugLogger) Enabled() bool {
	return d.enabled
}

// Printf はデバッグモードが有効な場合のみメッセージを表示します
func (d *DebugLogger) Printf(format string, a ...any) {
	if !d.enabled {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format, a...)
}
