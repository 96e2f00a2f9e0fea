package testutil

import (
	"bytes"
	"encoding/binary"

	"github.com/shiroemons/go-kifint/pkg/hg3"
)

// HG3Tag は stdinfo の後に続くタグ
type HG3Tag struct {
	Name    string
	Payload []byte
}

// HG3Image は1つの画像 (stdinfo とそれに続くタグ)
type HG3Image struct {
	Info hg3.StdInfo
	Tags []HG3Tag
}

// FrameTag は imgNNNN タグのペイロード (フレームレコード + データ + コマンド列) を作成します。
func FrameTag(name string, height int32, data, cmd []byte) HG3Tag {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, hg3.FrameRecord{
		Height:             height,
		DataLength:         int32(len(data)),
		OriginalDataLength: int32(len(data)),
		CmdLength:          int32(len(cmd)),
		OriginalCmdLength:  int32(len(cmd)),
	})
	buf.Write(data)
	buf.Write(cmd)
	return HG3Tag{Name: name, Payload: buf.Bytes()}
}

// BuildHG3 は HG-3 コンテナのバイト列を組み立てます。
// 2番目の戻り値は画像ごとの imgNNNN タグのペイロード開始位置です。
func BuildHG3(images []HG3Image) ([]byte, [][]int64) {
	var buf bytes.Buffer
	buf.WriteString(hg3.Signature)
	binary.Write(&buf, binary.LittleEndian, [4]int32{12, 0x300, 0, int32(len(images))})

	offsets := make([][]int64, len(images))
	for i, img := range images {
		start := buf.Len()
		binary.Write(&buf, binary.LittleEndian, int32(0))

		var next int32
		if len(img.Tags) > 0 {
			next = 16 + 40
		}
		writeTag(&buf, "stdinfo", next, 40)
		binary.Write(&buf, binary.LittleEndian, img.Info)

		for j, tag := range img.Tags {
			next = 0
			if j < len(img.Tags)-1 {
				next = int32(16 + len(tag.Payload))
			}
			writeTag(&buf, tag.Name, next, int32(len(tag.Payload)))
			if isImageTag(tag.Name) {
				offsets[i] = append(offsets[i], int64(buf.Len()))
			}
			buf.Write(tag.Payload)
		}

		if i < len(images)-1 {
			b := buf.Bytes()
			binary.LittleEndian.PutUint32(b[start:start+4], uint32(buf.Len()-start))
		}
	}
	return buf.Bytes(), offsets
}

func writeTag(buf *bytes.Buffer, name string, offsetNext, length int32) {
	sig := tagSignature(name)
	buf.Write(sig[:])
	binary.Write(buf, binary.LittleEndian, offsetNext)
	binary.Write(buf, binary.LittleEndian, length)
}

func isImageTag(name string) bool {
	return hg3.Tag{Signature: tagSignature(name)}.IsFrame()
}

func tagSignature(name string) [8]byte {
	var sig [8]byte
	copy(sig[:], name)
	return sig
}

// BGRRows は bottom-up の行順で、各画素が (b, g, r[, a]) = (x, y, v[, 0xFF]) となる
// 行パディング付きのピクセル列を作成します。
func BGRRows(width, height, bpp int, v byte) []byte {
	stride := hg3.Stride(width, bpp)
	buf := make([]byte, stride*height)
	for row := 0; row < height; row++ {
		y := height - 1 - row
		for x := 0; x < width; x++ {
			p := buf[row*stride+x*bpp:]
			p[0] = byte(x)
			p[1] = byte(y)
			p[2] = v
			if bpp == 4 {
				p[3] = 0xFF
			}
		}
	}
	return buf
}
