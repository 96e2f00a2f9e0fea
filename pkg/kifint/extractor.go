package kifint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shiroemons/go-kifint/pkg/hg3"
)

// Extractor は索引からエントリを探してデータを取り出します。
type Extractor struct {
	lookup *Lookup
	codec  Codec
}

// NewExtractor は Extractor を作成します。
func NewExtractor(lookup *Lookup, codec Codec) *Extractor {
	return &Extractor{lookup: lookup, codec: codec}
}

// Lookup は索引を返します。
func (x *Extractor) Lookup() *Lookup {
	return x.lookup
}

// Names は索引の全エントリ名を昇順で返します。
func (x *Extractor) Names() []string {
	return x.lookup.Names()
}

// Extract はエントリのデータを読み込み、アーカイブが暗号化されていれば復号して返します。
func (x *Extractor) Extract(ctx context.Context, name string) ([]byte, error) {
	entry, err := x.find(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(entry.archive.FilePath)
	if err != nil {
		return nil, newArchiveError("open", entry.archive.FilePath, err)
	}
	defer file.Close()

	return x.read(file, entry)
}

// ExtractMany は names のエントリを順に取り出して fn に渡します。
// 同じアーカイブのエントリは1つのファイルハンドルを使い回します。
// fn がエラーを返した場合はそこで中断します。
func (x *Extractor) ExtractMany(ctx context.Context, names []string, fn func(name string, data []byte) error) error {
	files := make(map[*Archive]*os.File)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := x.find(name)
		if err != nil {
			return err
		}

		file, ok := files[entry.archive]
		if !ok {
			file, err = os.Open(entry.archive.FilePath)
			if err != nil {
				return newArchiveError("open", entry.archive.FilePath, err)
			}
			files[entry.archive] = file
		}

		data, err := x.read(file, entry)
		if err != nil {
			return err
		}
		if err := fn(name, data); err != nil {
			return err
		}
	}
	return nil
}

// ParseHG3 はエントリを取り出して HG-3 コンテナとして解析します。
func (x *Extractor) ParseHG3(ctx context.Context, name string, expand bool) (*hg3.Container, []byte, error) {
	data, err := x.Extract(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	c, err := hg3.Parse(bytes.NewReader(data), name, expand)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, data, nil
}

// DecodeHG3 はエントリを取り出し、HG-3 コンテナを解析してすべてのフレームを復元します。
func (x *Extractor) DecodeHG3(ctx context.Context, name string, expand bool) (*hg3.Container, []*hg3.Frame, error) {
	c, data, err := x.ParseHG3(ctx, name, expand)
	if err != nil {
		return nil, nil, err
	}
	frames, err := c.DecodeFrames(ctx, bytes.NewReader(data), x.codec)
	if err != nil {
		return nil, nil, err
	}
	return c, frames, nil
}

func (x *Extractor) find(name string) (*ArchiveEntry, error) {
	entry, ok := x.lookup.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	if entry.Length < 0 {
		return nil, newArchiveError("extract", entry.archive.FilePath,
			fmt.Errorf("%w: %s has length %d", ErrInvalidEntry, name, entry.Length))
	}
	return entry, nil
}

func (x *Extractor) read(file io.ReadSeeker, entry *ArchiveEntry) ([]byte, error) {
	path := entry.archive.FilePath
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, newArchiveError("seek", path, err)
	}
	if int64(entry.Offset)+int64(entry.Length) > size {
		return nil, newArchiveError("extract", path,
			fmt.Errorf("%w: %s [%d, +%d) exceeds file size %d", ErrInvalidEntry, entry.FileName, entry.Offset, entry.Length, size))
	}
	if _, err := file.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, newArchiveError("seek", path, err)
	}

	data := make([]byte, entry.Length)
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, newArchiveError("read", path, fmt.Errorf("%s: %w", entry.FileName, err))
	}

	if key, ok := entry.archive.Key(); ok {
		if x.codec == nil {
			return nil, newArchiveError("decrypt", path, ErrDecrypterRequired)
		}
		if err := x.codec.DecryptData(data, key); err != nil {
			return nil, newArchiveError("decrypt", path, fmt.Errorf("%s: %w", entry.FileName, err))
		}
	}
	return data, nil
}
