// Package hg3 は KIFINT アーカイブ内の HG-3 画像コンテナを解析するためのパッケージです。
//
// HG-3 はタグの連鎖で構成され、1つのファイルに複数の画像 (stdinfo) と、
// 画像ごとに複数のフレーム (img0000, img0001, ...) を含むことができます。
//
// 基本的な使い方:
//
//	c, err := hg3.Parse(r, "ev_01a.hg3", false)
//	if err != nil {
//	    return err
//	}
//	frames, err := c.DecodeFrames(ctx, r, decoder)
package hg3

import (
	"bytes"
	"regexp"
	"strings"
)

// Signature は HG-3 ファイルの識別子
const Signature = "HG-3"

// 各レコードのバイトサイズ
const (
	headerSize      = 20
	offsetSize      = 4
	tagSize         = 16
	stdInfoSize     = 40
	frameRecordSize = 24
)

const stdInfoSignature = "stdinfo"

var imageTagPattern = regexp.MustCompile(`^img[0-9]+$`)

// Header は HG-3 ファイルの先頭部分です。
// EntryCountHint は信頼できないため、ループの終了判定には使いません。
type Header struct {
	Signature      [4]byte
	Unknown1       int32
	Unknown2       int32
	Unknown3       int32
	EntryCountHint int32
}

// offsetRecord は画像ごとの先頭にある次の画像までの距離 (0 で終端)
type offsetRecord struct {
	OffsetNext int32
}

// Tag はタグ連鎖の1ノードです。
type Tag struct {
	Signature  [8]byte
	OffsetNext int32 // 0 で連鎖の終端
	Length     int32 // 後続するペイロードのバイト長
}

// Name は NUL を取り除いたタグ名を返します。
func (t Tag) Name() string {
	return string(bytes.TrimRight(t.Signature[:], "\x00"))
}

// IsStdInfo はタグが stdinfo 系かどうかを返します。
func (t Tag) IsStdInfo() bool {
	return strings.HasPrefix(t.Name(), stdInfoSignature)
}

// IsFrame はタグが "img" + 数字のフレームタグかどうかを返します。
func (t Tag) IsFrame() bool {
	return imageTagPattern.MatchString(t.Name())
}

// StdInfo は画像ごとのメタデータです。
type StdInfo struct {
	Width       int32 // 切り詰められた画像の幅
	Height      int32 // 切り詰められた画像の高さ
	DepthBits   int32
	OffsetX     int32
	OffsetY     int32
	TotalWidth  int32
	TotalHeight int32
	FrameCount  int32
	Center      int32
	Baseline    int32
}

// BytesPerPixel は1ピクセルあたりのバイト数を返します。
func (s StdInfo) BytesPerPixel() int {
	return (int(s.DepthBits) + 7) / 8
}

// FrameRecord はフレームごとの圧縮データのヘッダです。
type FrameRecord struct {
	Unknown            int32
	Height             int32
	DataLength         int32
	OriginalDataLength int32
	CmdLength          int32
	OriginalCmdLength  int32
}

// Image は1つの stdinfo と、そのフレームのストリーム上の位置の組です。
type Image struct {
	Info         StdInfo
	FrameOffsets []int64
}

// Container は HG-3 ファイルの解析結果です。構築後は変更されません。
type Container struct {
	FileName string
	Expanded bool
	Images   []Image
}

// FrameCount は全画像のフレーム数の合計を返します。
func (c *Container) FrameCount() int {
	total := 0
	for _, img := range c.Images {
		total += len(img.FrameOffsets)
	}
	return total
}

// IsAnimation は複数の画像、または複数フレームを持つ単一画像であれば true を返します。
func (c *Container) IsAnimation() bool {
	switch len(c.Images) {
	case 0:
		return false
	case 1:
		return len(c.Images[0].FrameOffsets) > 1
	default:
		return true
	}
}

// Stride は幅とピクセルサイズから4バイト境界に揃えた行のバイト数を返します。
func Stride(width, bytesPerPixel int) int {
	return (width*bytesPerPixel + 3) / 4 * 4
}
