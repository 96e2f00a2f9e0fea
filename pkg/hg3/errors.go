package hg3

import "errors"

var (
	// ErrInvalidSignature は HG-3 の識別子が一致しない場合のエラー
	ErrInvalidSignature = errors.New("hg3: invalid signature")

	// ErrStdInfoNotFound は再同期しても stdinfo タグが見つからない場合のエラー
	ErrStdInfoNotFound = errors.New("hg3: stdinfo tag not found")

	// ErrInvalidTag はタグの長さや次のオフセットが不正な場合のエラー
	ErrInvalidTag = errors.New("hg3: invalid tag")

	// ErrInvalidFrame はフレームレコードが不正な場合のエラー
	ErrInvalidFrame = errors.New("hg3: invalid frame record")

	// ErrUnsupportedDepth は 24/32 ビット以外の色深度の場合のエラー
	ErrUnsupportedDepth = errors.New("hg3: unsupported pixel depth")

	// ErrShortPixelBuffer はデコード結果が画像サイズに満たない場合のエラー
	ErrShortPixelBuffer = errors.New("hg3: decoded pixel buffer too short")

	// ErrPixelDecoderUnavailable はピクセルデコーダが設定されていない場合のエラー
	ErrPixelDecoderUnavailable = errors.New("hg3: pixel decoder unavailable")
)
