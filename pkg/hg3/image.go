package hg3

import "image"

// Image は BGR(A) のピクセル列を *image.NRGBA に変換します。
// 24ビットの場合はアルファを 0xFF とします。
func (f *Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			s := src[x*f.BytesPerPixel:]
			d := dst[x*4 : x*4+4]
			d[0], d[1], d[2] = s[2], s[1], s[0]
			if f.BytesPerPixel == 4 {
				d[3] = s[3]
			} else {
				d[3] = 0xFF
			}
		}
	}
	return img
}
