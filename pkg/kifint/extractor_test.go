package kifint

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-kifint/internal/mocks"
	"github.com/shiroemons/go-kifint/internal/testutil"
	"github.com/shiroemons/go-kifint/pkg/hg3"
)

func buildExtractor(t *testing.T, codec *mocks.FakeCodec, archives map[string][]testutil.File, opts testutil.ArchiveOptions) *Extractor {
	t.Helper()
	dir := writeInstallDir(t, archives, opts)
	format, _ := DefaultArchiveFormats().Lookup("image")
	l, err := BuildLookup(context.Background(), dir, format, BuildOptions{Secret: opts.Secret, Decrypter: codec})
	require.NoError(t, err)
	return NewExtractor(l, codec)
}

func TestExtractor_Extract(t *testing.T) {
	files := map[string][]testutil.File{
		"image.int":  {{Name: "a.hg3", Data: []byte("alpha")}, {Name: "b.hg3", Data: []byte("bravo!")}},
		"image2.int": {{Name: "c.hg3", Data: []byte("charlie")}},
	}

	tests := []struct {
		name         string
		opts         testutil.ArchiveOptions
		wantDecrypts int
	}{
		{name: "暗号化なしは復号しない", opts: testutil.ArchiveOptions{}, wantDecrypts: 0},
		{name: "暗号化ありは復号する", opts: testutil.ArchiveOptions{Secret: testSecret, KeyLength: 5, KeyIndex: 1}, wantDecrypts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := mocks.NewFakeCodec()
			if tt.wantDecrypts > 0 {
				tt.opts.Encrypter = codec
			}
			x := buildExtractor(t, codec, files, tt.opts)

			for _, f := range []testutil.File{files["image.int"][1], files["image2.int"][0]} {
				before := codec.DataCallCount()
				data, err := x.Extract(context.Background(), f.Name)
				require.NoError(t, err)
				assert.Equal(t, f.Data, data)
				assert.Equal(t, tt.wantDecrypts, codec.DataCallCount()-before)
			}
		})
	}
}

func TestExtractor_ExtractErrors(t *testing.T) {
	codec := mocks.NewFakeCodec()
	x := buildExtractor(t, codec, map[string][]testutil.File{
		"image.int": {{Name: "a.hg3", Data: []byte("alpha")}},
	}, testutil.ArchiveOptions{Encrypter: codec, Secret: testSecret, KeyLength: 3})

	_, err := x.Extract(context.Background(), "missing.hg3")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	dataErr := errors.New("data broken")
	codec.DataError = dataErr
	_, err = x.Extract(context.Background(), "a.hg3")
	assert.ErrorIs(t, err, dataErr)
	codec.DataError = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = x.Extract(ctx, "a.hg3")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractor_ExtractInvalidEntry(t *testing.T) {
	a := &Archive{FilePath: filepath.Join(t.TempDir(), "image.int")}
	a.addEntry("neg.hg3", 0, -1)
	a.addEntry("far.hg3", 1<<20, 16)
	l := NewLookup()
	require.NoError(t, l.Merge(a))
	x := NewExtractor(l, mocks.NewFakeCodec())

	_, err := x.Extract(context.Background(), "neg.hg3")
	assert.ErrorIs(t, err, ErrInvalidEntry)

	// アーカイブのファイルが存在しない
	_, err = x.Extract(context.Background(), "far.hg3")
	var archiveErr *ArchiveError
	assert.ErrorAs(t, err, &archiveErr)
}

func TestExtractor_ExtractBeyondFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.int")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xAB}, 64), 0644))

	a := &Archive{FilePath: path}
	a.addEntry("ok.hg3", 60, 4)
	a.addEntry("huge.hg3", 0, 1<<30)
	a.addEntry("tail.hg3", 60, 5)
	a.addEntry("past.hg3", 1<<20, 1)
	l := NewLookup()
	require.NoError(t, l.Merge(a))
	x := NewExtractor(l, nil)

	data, err := x.Extract(context.Background(), "ok.hg3")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xAB, 0xAB, 0xAB}, data)

	for _, name := range []string{"huge.hg3", "tail.hg3", "past.hg3"} {
		t.Run(name, func(t *testing.T) {
			_, err := x.Extract(context.Background(), name)
			assert.ErrorIs(t, err, ErrInvalidEntry)

			err = x.ExtractMany(context.Background(), []string{name}, func(string, []byte) error { return nil })
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}
}

func TestExtractor_ExtractMany(t *testing.T) {
	files := map[string][]testutil.File{
		"image.int":  {{Name: "a.hg3", Data: []byte("alpha")}, {Name: "b.hg3", Data: []byte("bravo")}},
		"image2.int": {{Name: "c.hg3", Data: []byte("charlie")}},
	}
	codec := mocks.NewFakeCodec()
	x := buildExtractor(t, codec, files, testutil.ArchiveOptions{Encrypter: codec, Secret: testSecret, KeyLength: 8})

	got := map[string]string{}
	var order []string
	err := x.ExtractMany(context.Background(), []string{"c.hg3", "a.hg3", "b.hg3"}, func(name string, data []byte) error {
		order = append(order, name)
		got[name] = string(data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.hg3", "a.hg3", "b.hg3"}, order)
	assert.Equal(t, map[string]string{"a.hg3": "alpha", "b.hg3": "bravo", "c.hg3": "charlie"}, got)

	stop := errors.New("stop")
	calls := 0
	err = x.ExtractMany(context.Background(), []string{"a.hg3", "b.hg3"}, func(string, []byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)

	err = x.ExtractMany(context.Background(), []string{"a.hg3", "nope"}, func(string, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestExtractor_DecodeHG3(t *testing.T) {
	info := hg3.StdInfo{Width: 2, Height: 2, DepthBits: 24, TotalWidth: 2, TotalHeight: 2}
	pixels := testutil.BGRRows(2, 2, 3, 0x11)
	container, _ := testutil.BuildHG3([]testutil.HG3Image{
		{Info: info, Tags: []testutil.HG3Tag{
			testutil.FrameTag("img0000", 2, pixels, nil),
			testutil.FrameTag("img0001", 2, pixels, nil),
		}},
	})

	codec := mocks.NewFakeCodec()
	x := buildExtractor(t, codec, map[string][]testutil.File{
		"image.int": {{Name: "ev_01a.hg3", Data: container}, {Name: "note.txt", Data: []byte("not an image, just some plain text")}},
	}, testutil.ArchiveOptions{Encrypter: codec, Secret: testSecret, KeyLength: 1234})

	c, frames, err := x.DecodeHG3(context.Background(), "ev_01a.hg3", false)
	require.NoError(t, err)
	assert.Equal(t, "ev_01a.hg3", c.FileName)
	assert.True(t, c.IsAnimation())
	require.Len(t, frames, 2)
	for _, f := range frames {
		assert.Equal(t, 2, f.Width)
		assert.Equal(t, byte(0x11), f.Pix[2])
	}

	_, _, err = x.DecodeHG3(context.Background(), "note.txt", false)
	assert.ErrorIs(t, err, hg3.ErrInvalidSignature)
}

func TestExtractor_DecodeHG3WithoutPixelDecoder(t *testing.T) {
	info := hg3.StdInfo{Width: 1, Height: 1, DepthBits: 32, TotalWidth: 1, TotalHeight: 1}
	container, _ := testutil.BuildHG3([]testutil.HG3Image{
		{Info: info, Tags: []testutil.HG3Tag{testutil.FrameTag("img0000", 1, []byte{1, 2, 3, 4}, nil)}},
	})
	dir := writeInstallDir(t, map[string][]testutil.File{
		"image.int": {{Name: "x.hg3", Data: container}},
	}, testutil.ArchiveOptions{})
	format, _ := DefaultArchiveFormats().Lookup("image")
	l, err := BuildLookup(context.Background(), dir, format, BuildOptions{})
	require.NoError(t, err)

	x := NewExtractor(l, NewCodec(mocks.NewFakeCodec(), nil))
	c, _, err := x.ParseHG3(context.Background(), "x.hg3", false)
	require.NoError(t, err)
	assert.Equal(t, 1, c.FrameCount())

	_, _, err = x.DecodeHG3(context.Background(), "x.hg3", false)
	assert.ErrorIs(t, err, hg3.ErrPixelDecoderUnavailable)
}
