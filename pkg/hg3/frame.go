package hg3

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// PixelInput はピクセルデコーダに渡す圧縮データと画像情報です。
type PixelInput struct {
	Data               []byte
	OriginalDataLength int
	Cmd                []byte
	OriginalCmdLength  int
	Width              int
	Height             int
	BytesPerPixel      int
}

// PixelDecoder は圧縮されたフレームを展開する外部ルーチンです。
// 戻り値は下から上の行順で、各行は Stride(Width, BytesPerPixel) バイトです。
type PixelDecoder interface {
	DecodePixels(in PixelInput) ([]byte, error)
}

// Frame は復元された1フレームです。Pix は上から下の行順の BGR または BGRA です。
type Frame struct {
	ImageIndex    int
	FrameIndex    int
	Width         int
	Height        int
	BytesPerPixel int
	Stride        int
	Pix           []byte
}

// DecodeFrames はすべての画像のすべてのフレームを順に復元します。
func (c *Container) DecodeFrames(ctx context.Context, r io.ReadSeeker, decoder PixelDecoder) ([]*Frame, error) {
	frames := make([]*Frame, 0, c.FrameCount())
	for i, img := range c.Images {
		for j, offset := range img.FrameOffsets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f, err := DecodeFrame(r, img.Info, offset, decoder, c.Expanded)
			if err != nil {
				return nil, fmt.Errorf("%s: image %d frame %d: %w", c.FileName, i, j, err)
			}
			f.ImageIndex = i
			f.FrameIndex = j
			frames = append(frames, f)
		}
	}
	return frames, nil
}

// DecodeFrame は offset の位置にあるフレームを読み込み、デコーダで展開して
// 上下を反転したピクセル列を返します。expand が true の場合は全体のキャンバスへ合成します。
func DecodeFrame(r io.ReadSeeker, info StdInfo, offset int64, decoder PixelDecoder, expand bool) (*Frame, error) {
	if decoder == nil {
		return nil, ErrPixelDecoderUnavailable
	}
	bpp := info.BytesPerPixel()
	if bpp != 3 && bpp != 4 {
		return nil, fmt.Errorf("%w: %d bits", ErrUnsupportedDepth, info.DepthBits)
	}
	width, height := int(info.Width), int(info.Height)
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, width, height)
	}

	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	var rec FrameRecord
	if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
		return nil, fmt.Errorf("failed to read frame record: %w", err)
	}
	if rec.DataLength < 0 || rec.CmdLength < 0 {
		return nil, fmt.Errorf("%w: data=%d cmd=%d", ErrInvalidFrame, rec.DataLength, rec.CmdLength)
	}
	left, err := remaining(r)
	if err != nil {
		return nil, err
	}
	if int64(rec.DataLength)+int64(rec.CmdLength) > left {
		return nil, fmt.Errorf("%w: data=%d cmd=%d exceed %d remaining bytes", ErrInvalidFrame, rec.DataLength, rec.CmdLength, left)
	}

	data := make([]byte, rec.DataLength)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read frame data: %w", err)
	}
	cmd := make([]byte, rec.CmdLength)
	if _, err := io.ReadFull(r, cmd); err != nil {
		return nil, fmt.Errorf("failed to read frame command stream: %w", err)
	}

	decoded, err := decoder.DecodePixels(PixelInput{
		Data:               data,
		OriginalDataLength: int(rec.OriginalDataLength),
		Cmd:                cmd,
		OriginalCmdLength:  int(rec.OriginalCmdLength),
		Width:              width,
		Height:             height,
		BytesPerPixel:      bpp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode pixels: %w", err)
	}

	frame, err := flipRows(decoded, width, height, bpp)
	if err != nil {
		return nil, err
	}
	if expand {
		return expandFrame(frame, info), nil
	}
	return frame, nil
}

// remaining は現在位置からストリーム末尾までのバイト数を返します。位置は変わりません。
func remaining(r io.Seeker) (int64, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return end - pos, nil
}

// flipRows は下から上の行順を上から下へ並べ替えます。
func flipRows(src []byte, width, height, bpp int) (*Frame, error) {
	stride := Stride(width, bpp)
	if len(src) < stride*height {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortPixelBuffer, len(src), stride*height)
	}

	pix := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		dst := (height - 1 - y) * stride
		copy(pix[dst:dst+stride], src[y*stride:(y+1)*stride])
	}

	return &Frame{
		Width:         width,
		Height:        height,
		BytesPerPixel: bpp,
		Stride:        stride,
		Pix:           pix,
	}, nil
}

// expandFrame は切り詰められた画像を (OffsetX, OffsetY) の位置に
// TotalWidth x TotalHeight のゼロ初期化されたキャンバスへ配置します。
// キャンバスからはみ出す部分は切り捨てます。
func expandFrame(f *Frame, info StdInfo) *Frame {
	totalWidth, totalHeight := int(info.TotalWidth), int(info.TotalHeight)
	if totalWidth < 0 {
		totalWidth = 0
	}
	if totalHeight < 0 {
		totalHeight = 0
	}
	bpp := f.BytesPerPixel
	stride := Stride(totalWidth, bpp)
	canvas := make([]byte, stride*totalHeight)

	offX, offY := int(info.OffsetX), int(info.OffsetY)

	// 横方向のクリップ範囲
	srcX0, dstX0 := 0, offX
	if dstX0 < 0 {
		srcX0 = -dstX0
		dstX0 = 0
	}
	cols := min(f.Width-srcX0, totalWidth-dstX0)

	if cols > 0 {
		for y := 0; y < f.Height; y++ {
			dstY := offY + y
			if dstY < 0 || dstY >= totalHeight {
				continue
			}
			src := f.Pix[y*f.Stride+srcX0*bpp:]
			dst := canvas[dstY*stride+dstX0*bpp:]
			copy(dst[:cols*bpp], src[:cols*bpp])
		}
	}

	return &Frame{
		ImageIndex:    f.ImageIndex,
		FrameIndex:    f.FrameIndex,
		Width:         totalWidth,
		Height:        totalHeight,
		BytesPerPixel: bpp,
		Stride:        stride,
		Pix:           canvas,
	}
}
