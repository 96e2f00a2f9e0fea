package hg3_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-kifint/internal/mocks"
	"github.com/shiroemons/go-kifint/internal/testutil"
	"github.com/shiroemons/go-kifint/pkg/hg3"
)

// pixelAt は上から下の行順のフレームから (x, y) の画素を返します。
func pixelAt(f *hg3.Frame, x, y int) []byte {
	off := y*f.Stride + x*f.BytesPerPixel
	return f.Pix[off : off+f.BytesPerPixel]
}

func buildFrames(t *testing.T, images []testutil.HG3Image) (*hg3.Container, []byte) {
	t.Helper()
	data, _ := testutil.BuildHG3(images)
	c, err := hg3.Parse(bytes.NewReader(data), "frames.hg3", false)
	require.NoError(t, err)
	return c, data
}

func TestDecodeFrames_FlipsRows(t *testing.T) {
	tests := []struct {
		name  string
		depth int32
		bpp   int
	}{
		{name: "24ビット", depth: 24, bpp: 3},
		{name: "32ビット", depth: 32, bpp: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const w, h = 3, 4
			info := hg3.StdInfo{Width: w, Height: h, DepthBits: tt.depth, TotalWidth: w, TotalHeight: h}
			pixels := testutil.BGRRows(w, h, tt.bpp, 0x42)
			c, data := buildFrames(t, []testutil.HG3Image{
				{Info: info, Tags: []testutil.HG3Tag{testutil.FrameTag("img0000", h, pixels, []byte{1, 2})}},
			})

			codec := mocks.NewFakeCodec()
			frames, err := c.DecodeFrames(context.Background(), bytes.NewReader(data), codec)
			require.NoError(t, err)
			require.Len(t, frames, 1)

			f := frames[0]
			assert.Equal(t, w, f.Width)
			assert.Equal(t, h, f.Height)
			assert.Equal(t, tt.bpp, f.BytesPerPixel)
			assert.Equal(t, hg3.Stride(w, tt.bpp), f.Stride)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					p := pixelAt(f, x, y)
					assert.Equal(t, byte(x), p[0])
					assert.Equal(t, byte(y), p[1])
					assert.Equal(t, byte(0x42), p[2])
				}
			}

			require.Len(t, codec.PixelCalls, 1)
			in := codec.PixelCalls[0]
			assert.Equal(t, []byte{1, 2}, in.Cmd)
			assert.Equal(t, len(pixels), in.OriginalDataLength)
			assert.Equal(t, 2, in.OriginalCmdLength)
			assert.Equal(t, tt.bpp, in.BytesPerPixel)
		})
	}
}

func TestDecodeFrames_Order(t *testing.T) {
	small := hg3.StdInfo{Width: 1, Height: 1, DepthBits: 32, TotalWidth: 1, TotalHeight: 1}
	frame := func(name string, v byte) testutil.HG3Tag {
		return testutil.FrameTag(name, 1, []byte{v, v, v, v}, nil)
	}
	c, data := buildFrames(t, []testutil.HG3Image{
		{Info: small, Tags: []testutil.HG3Tag{frame("img0000", 1), {Name: "ats0000", Payload: []byte{0}}, frame("img0001", 2)}},
		{Info: small, Tags: []testutil.HG3Tag{frame("img0000", 3), frame("img0001", 4), frame("img0002", 5)}},
	})

	frames, err := c.DecodeFrames(context.Background(), bytes.NewReader(data), mocks.NewFakeCodec())
	require.NoError(t, err)
	require.Len(t, frames, 5)

	want := []struct{ image, frame int }{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {1, 2}}
	for i, f := range frames {
		assert.Equal(t, want[i].image, f.ImageIndex)
		assert.Equal(t, want[i].frame, f.FrameIndex)
		assert.Equal(t, byte(i+1), f.Pix[0])
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	good := hg3.StdInfo{Width: 1, Height: 1, DepthBits: 32, TotalWidth: 1, TotalHeight: 1}
	decodeErr := errors.New("broken stream")

	tests := []struct {
		name    string
		info    hg3.StdInfo
		payload []byte
		codec   func() *mocks.FakeCodec
		wantErr error
	}{
		{
			name:    "16ビットは未対応",
			info:    hg3.StdInfo{Width: 1, Height: 1, DepthBits: 16},
			payload: []byte{0, 0, 0, 0},
			codec:   mocks.NewFakeCodec,
			wantErr: hg3.ErrUnsupportedDepth,
		},
		{
			name:    "展開結果が短い",
			info:    hg3.StdInfo{Width: 2, Height: 2, DepthBits: 24},
			payload: []byte{1, 2, 3},
			codec:   mocks.NewFakeCodec,
			wantErr: hg3.ErrShortPixelBuffer,
		},
		{
			name:    "デコーダのエラー",
			info:    good,
			payload: []byte{0, 0, 0, 0},
			codec: func() *mocks.FakeCodec {
				m := mocks.NewFakeCodec()
				m.PixelError = decodeErr
				return m
			},
			wantErr: decodeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, data := buildFrames(t, []testutil.HG3Image{
				{Info: tt.info, Tags: []testutil.HG3Tag{testutil.FrameTag("img0000", tt.info.Height, tt.payload, nil)}},
			})

			_, err := hg3.DecodeFrame(bytes.NewReader(data), tt.info, c.Images[0].FrameOffsets[0], tt.codec(), false)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeFrame_LengthBeyondStream(t *testing.T) {
	info := hg3.StdInfo{Width: 1, Height: 1, DepthBits: 32, TotalWidth: 1, TotalHeight: 1}

	tests := []struct {
		name  string
		field int64 // FrameRecord 内のバイト位置
		value uint32
	}{
		{name: "データ長が巨大", field: 8, value: 0x7FFFFFFF},
		{name: "コマンド長が巨大", field: 16, value: 0x7FFFFFFF},
		{name: "末尾を1バイト超える", field: 8, value: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, data := buildFrames(t, []testutil.HG3Image{
				{Info: info, Tags: []testutil.HG3Tag{testutil.FrameTag("img0000", 1, []byte{1, 2, 3, 4}, nil)}},
			})
			off := c.Images[0].FrameOffsets[0]
			binary.LittleEndian.PutUint32(data[off+tt.field:], tt.value)

			codec := mocks.NewFakeCodec()
			_, err := hg3.DecodeFrame(bytes.NewReader(data), info, off, codec, false)
			assert.ErrorIs(t, err, hg3.ErrInvalidFrame)
			assert.Empty(t, codec.PixelCalls)
		})
	}
}

func TestDecodeFrame_NilDecoder(t *testing.T) {
	_, err := hg3.DecodeFrame(bytes.NewReader(nil), hg3.StdInfo{DepthBits: 32}, 0, nil, false)
	assert.ErrorIs(t, err, hg3.ErrPixelDecoderUnavailable)
}

func TestDecodeFrames_Canceled(t *testing.T) {
	small := hg3.StdInfo{Width: 1, Height: 1, DepthBits: 32, TotalWidth: 1, TotalHeight: 1}
	c, data := buildFrames(t, []testutil.HG3Image{
		{Info: small, Tags: []testutil.HG3Tag{testutil.FrameTag("img0000", 1, []byte{1, 1, 1, 1}, nil)}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	codec := mocks.NewFakeCodec()
	_, err := c.DecodeFrames(ctx, bytes.NewReader(data), codec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, codec.PixelCalls)
}

func TestDecodeFrames_Expand(t *testing.T) {
	info := hg3.StdInfo{
		Width: 2, Height: 2, DepthBits: 32,
		OffsetX: 1, OffsetY: 2,
		TotalWidth: 4, TotalHeight: 5,
	}
	pixels := testutil.BGRRows(2, 2, 4, 0x80)
	data, _ := testutil.BuildHG3([]testutil.HG3Image{
		{Info: info, Tags: []testutil.HG3Tag{testutil.FrameTag("img0000", 2, pixels, nil)}},
	})

	c, err := hg3.Parse(bytes.NewReader(data), "expand.hg3", true)
	require.NoError(t, err)
	assert.True(t, c.Expanded)

	frames, err := c.DecodeFrames(context.Background(), bytes.NewReader(data), mocks.NewFakeCodec())
	require.NoError(t, err)
	require.Len(t, frames, 1)

	f := frames[0]
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 5, f.Height)
	assert.Len(t, f.Pix, 16*5)

	for y := 0; y < 5; y++ {
		for x := 0; x < 4; x++ {
			p := pixelAt(f, x, y)
			inside := x >= 1 && x < 3 && y >= 2 && y < 4
			if inside {
				assert.Equal(t, []byte{byte(x - 1), byte(y - 2), 0x80, 0xFF}, p, "(%d,%d)", x, y)
			} else {
				assert.Equal(t, []byte{0, 0, 0, 0}, p, "(%d,%d)", x, y)
			}
		}
	}
}

func TestFrame_Image(t *testing.T) {
	tests := []struct {
		name      string
		bpp       int
		wantAlpha byte
	}{
		{name: "24ビットは不透明", bpp: 3, wantAlpha: 0xFF},
		{name: "32ビットはアルファを保持", bpp: 4, wantAlpha: 0x7F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stride := hg3.Stride(2, tt.bpp)
			pix := make([]byte, stride)
			copy(pix, []byte{10, 20, 30})
			copy(pix[tt.bpp:], []byte{40, 50, 60})
			if tt.bpp == 4 {
				pix[3], pix[7] = 0x7F, 0x7F
			}
			f := &hg3.Frame{Width: 2, Height: 1, BytesPerPixel: tt.bpp, Stride: stride, Pix: pix}

			img := f.Image()
			assert.Equal(t, []byte{30, 20, 10, tt.wantAlpha, 60, 50, 40, tt.wantAlpha}, img.Pix[:8])
		})
	}
}
