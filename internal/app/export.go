package app

import (
	"bytes"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// scaleImage は画像を factor 倍に拡大・縮小します。factor が 1 の場合はそのまま返します。
func scaleImage(src image.Image, factor float64) image.Image {
	if factor == 1 {
		return src
	}
	b := src.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// encodeImage は画像を指定の形式でエンコードします。
func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "bmp":
		err = bmp.Encode(&buf, img)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
