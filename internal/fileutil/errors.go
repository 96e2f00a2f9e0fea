package fileutil

import "errors"

var (
	// ErrCreateDirectory は出力先ディレクトリの作成に失敗した場合のエラー
	ErrCreateDirectory = errors.New("出力先ディレクトリの作成に失敗しました")

	// ErrWriteContent は内容の書き込みに失敗した場合のエラー
	ErrWriteContent = errors.New("内容の書き込みに失敗しました")

	// ErrUnsafePath は出力先ディレクトリの外を指すエントリ名の場合のエラー
	ErrUnsafePath = errors.New("出力先ディレクトリの外を指すファイル名です")
)
