package app

import "errors"

var (
	// ErrUnknownArchiveType はアーカイブ種別が登録されていない場合のエラー
	ErrUnknownArchiveType = errors.New("不明なアーカイブ種別です")

	// ErrLoadLookup は索引の読み込みに失敗した場合のエラー
	ErrLoadLookup = errors.New("索引の読み込みに失敗しました")

	// ErrNoEntries は対象のエントリが1つも無い場合のエラー
	ErrNoEntries = errors.New("対象のエントリが見つかりませんでした")

	// ErrExtract はエントリの取り出しに失敗した場合のエラー
	ErrExtract = errors.New("エントリの取り出しに失敗しました")

	// ErrDecode は画像の復元に失敗した場合のエラー
	ErrDecode = errors.New("画像の復元に失敗しました")

	// ErrSaveFile はファイルの保存に失敗した場合のエラー
	ErrSaveFile = errors.New("ファイルの保存に失敗しました")
)
