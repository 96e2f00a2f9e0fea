// Package app はアプリケーションのメインロジックを実装します
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shiroemons/go-kifint/internal/config"
	"github.com/shiroemons/go-kifint/internal/fileutil"
	"github.com/shiroemons/go-kifint/internal/interfaces"
	"github.com/shiroemons/go-kifint/pkg/crypto"
	"github.com/shiroemons/go-kifint/pkg/hg3"
	"github.com/shiroemons/go-kifint/pkg/kifint"
)

// App はアプリケーションのメインロジックを管理します
type App struct {
	config    *config.Config
	logger    interfaces.Logger
	fs        interfaces.FileSystem
	extractor interfaces.Extractor
	codec     kifint.Codec
	registry  *kifint.ArchiveFormatRegistry
	stdout    io.Writer
	stderr    io.Writer
	mu        sync.Mutex // 出力用のミューテックス
}

// Options はAppの設定オプション
type Options struct {
	FileSystem interfaces.FileSystem

	// Extractor が指定された場合は索引を読み込まずにそれを使います
	Extractor interfaces.Extractor

	// Codec はエントリの復号とピクセル展開に使います。
	// 省略時は Blowfish の復号器のみを持ち、ピクセル展開はできません。
	Codec kifint.Codec

	Registry *kifint.ArchiveFormatRegistry
	Logger   interfaces.Logger
	Stdout   io.Writer
	Stderr   io.Writer
}

// New は新しいAppを作成します
func New(cfg *config.Config) *App {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions は新しいAppをオプション付きで作成します
func NewWithOptions(cfg *config.Config, opts Options) *App {
	a := &App{
		config:    cfg,
		logger:    opts.Logger,
		fs:        opts.FileSystem,
		extractor: opts.Extractor,
		codec:     opts.Codec,
		registry:  opts.Registry,
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
	}
	if a.logger == nil {
		a.logger = config.NewDebugLogger(cfg.DebugMode)
	}
	if a.fs == nil {
		a.fs = fileutil.NewOSFileSystem()
	}
	if a.codec == nil {
		a.codec = kifint.NewCodec(crypto.NewKifintBlowfish(), nil)
	}
	if a.registry == nil {
		a.registry = kifint.DefaultArchiveFormats()
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	return a
}

// Run はサブコマンドを実行します
func (a *App) Run(ctx context.Context) error {
	if a.extractor == nil {
		x, err := a.openExtractor(ctx)
		if err != nil {
			return err
		}
		a.extractor = x
	}

	switch a.config.Command {
	case config.CommandList:
		return a.runList()
	case config.CommandExtract:
		return a.runExtract(ctx)
	case config.CommandInfo:
		return a.runInfo(ctx)
	case config.CommandDecode:
		return a.runDecode(ctx)
	default:
		return fmt.Errorf("%w: %s", config.ErrUnknownCommand, a.config.Command)
	}
}

// openExtractor は索引をキャッシュから読み込むか、アーカイブから作成します
func (a *App) openExtractor(ctx context.Context) (*kifint.Extractor, error) {
	format, err := a.registry.Find(a.config.ArchiveType)
	if err != nil {
		var known []string
		for _, f := range a.registry.Formats() {
			known = append(known, fmt.Sprintf("%s (%s)", f.Name, f.Pattern))
		}
		return nil, fmt.Errorf("%w: %w; 利用できる種別: %s", ErrUnknownArchiveType, err, strings.Join(known, ", "))
	}

	cachePath := a.config.CachePath
	if cachePath == "" {
		cachePath = fileutil.DefaultCachePath(a.config.InstallDir, format.Name)
	}

	opts := kifint.BuildOptions{
		Secret:    a.config.Secret,
		Decrypter: a.codec,
		Workers:   a.config.Workers,
		Progress: func(p kifint.Progress) {
			a.logger.Printf("%s: %d/%d\n", filepath.Base(p.Archive), p.Done, p.Total)
		},
	}

	var lookup *kifint.Lookup
	if a.config.Rebuild {
		a.logger.Printf("索引を作成しています: %s\n", format.Pattern)
		l, err := kifint.BuildLookup(ctx, a.config.InstallDir, format, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadLookup, err)
		}
		if err := kifint.SaveLookupFile(l, cachePath, a.config.InstallDir); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadLookup, err)
		}
		lookup = l
	} else {
		l, cached, err := kifint.LoadOrBuildLookup(ctx, cachePath, a.config.InstallDir, format, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadLookup, err)
		}
		if cached {
			a.logger.Printf("索引をキャッシュから読み込みました: %s\n", cachePath)
		} else {
			a.logger.Printf("索引を作成して保存しました: %s\n", cachePath)
		}
		lookup = l
	}

	a.logger.Printf("%d 個のアーカイブ、%d 個のエントリ\n", len(lookup.Archives), lookup.Len())
	return kifint.NewExtractor(lookup, a.codec), nil
}

// selectNames は引数のパターンに一致するエントリ名を返します。
// パターンが無い場合は filter を満たすすべてのエントリを返します。
func (a *App) selectNames(filter func(string) bool) ([]string, error) {
	all := a.extractor.Names()
	if len(a.config.Names) == 0 {
		var names []string
		for _, name := range all {
			if filter == nil || filter(name) {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, ErrNoEntries
		}
		return names, nil
	}

	seen := make(map[string]bool)
	var names, notFound []string
	for _, pattern := range a.config.Names {
		matched := false
		for _, name := range all {
			if ok, _ := path.Match(pattern, name); ok || pattern == name {
				matched = true
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
		if !matched {
			notFound = append(notFound, pattern)
		}
	}

	if len(notFound) > 0 {
		fmt.Fprintf(a.stderr, "警告: 以下は見つかりませんでした:\n")
		for _, n := range notFound {
			fmt.Fprintf(a.stderr, "- %s\n", n)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoEntries
	}
	return names, nil
}

func isHG3(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".hg3")
}

// runList はエントリ名を表示します
func (a *App) runList() error {
	names, err := a.selectNames(nil)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(a.stdout, name)
	}
	return nil
}

// runExtract はエントリを取り出して出力先に保存します
// 読み込みはアーカイブごとに順に行い、保存は並列に行います。
func (a *App) runExtract(ctx context.Context) error {
	names, err := a.selectNames(nil)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	var count int
	err = a.extractor.ExtractMany(gctx, names, func(name string, data []byte) error {
		outPath, err := fileutil.OutputPath(a.config.OutputDir, name)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := fileutil.SaveToFile(a.fs, outPath, data); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrSaveFile, name, err)
			}
			a.mu.Lock()
			count++
			a.mu.Unlock()
			a.logger.Printf("成功: %s\n", name)
			return nil
		})
		return nil
	})
	if waitErr := g.Wait(); waitErr != nil {
		err = waitErr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtract, err)
	}

	fmt.Fprintf(a.stdout, "%d 個のファイルを抽出しました\n", count)
	return nil
}

// runInfo は HG-3 画像の情報を表示します
func (a *App) runInfo(ctx context.Context) error {
	names, err := a.selectNames(isHG3)
	if err != nil {
		return err
	}

	for _, name := range names {
		c, _, err := a.extractor.ParseHG3(ctx, name, a.config.Expand)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		writeContainerInfo(a.stdout, c)
	}
	return nil
}

func writeContainerInfo(w io.Writer, c *hg3.Container) {
	kind := "静止画"
	if c.IsAnimation() {
		kind = "アニメーション"
	}
	fmt.Fprintf(w, "%s: %s, 画像 %d, フレーム %d\n", c.FileName, kind, len(c.Images), c.FrameCount())
	for i, img := range c.Images {
		s := img.Info
		fmt.Fprintf(w, "  [%d] %dx%d %dbit offset=(%d,%d) total=%dx%d center=%d baseline=%d frames=%d\n",
			i, s.Width, s.Height, s.DepthBits, s.OffsetX, s.OffsetY,
			s.TotalWidth, s.TotalHeight, s.Center, s.Baseline, len(img.FrameOffsets))
	}
}

// runDecode は HG-3 画像のフレームを復元して保存します
func (a *App) runDecode(ctx context.Context) error {
	names, err := a.selectNames(isHG3)
	if err != nil {
		return err
	}

	count := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, frames, err := a.extractor.DecodeHG3(ctx, name, a.config.Expand)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}

		single := len(frames) == 1
		for _, f := range frames {
			data, err := encodeImage(scaleImage(f.Image(), a.config.Scale), a.config.Format)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
			}
			fileName := fileutil.FrameFileName(c.FileName, f.ImageIndex, f.FrameIndex, single, a.config.Format)
			outPath, err := fileutil.OutputPath(a.config.OutputDir, fileName)
			if err != nil {
				return err
			}
			if err := fileutil.SaveToFile(a.fs, outPath, data); err != nil {
				return fmt.Errorf("%w: %w", ErrSaveFile, err)
			}
			a.logger.Printf("保存しました: %s\n", outPath)
			count++
		}
	}

	fmt.Fprintf(a.stdout, "%d 個のフレームを保存しました\n", count)
	return nil
}
