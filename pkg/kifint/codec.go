package kifint

import "github.com/shiroemons/go-kifint/pkg/hg3"

// Decrypter はエントリ情報とデータを復号する外部ルーチンです。
// どちらもバッファをその場で書き換えます。
type Decrypter interface {
	DecryptEntryInfo(info *[8]byte, fileKey uint32) error
	DecryptData(buf []byte, fileKey uint32) error
}

// Codec は復号とピクセル展開をまとめた外部ルーチンです。
type Codec interface {
	Decrypter
	hg3.PixelDecoder
}

type codec struct {
	Decrypter
	pixels hg3.PixelDecoder
}

// NewCodec は復号器とピクセルデコーダを組み合わせて Codec を作成します。
// pixels が nil の場合、DecodePixels は hg3.ErrPixelDecoderUnavailable を返します。
func NewCodec(d Decrypter, pixels hg3.PixelDecoder) Codec {
	return &codec{Decrypter: d, pixels: pixels}
}

func (c *codec) DecodePixels(in hg3.PixelInput) ([]byte, error) {
	if c.pixels == nil {
		return nil, hg3.ErrPixelDecoderUnavailable
	}
	return c.pixels.DecodePixels(in)
}
