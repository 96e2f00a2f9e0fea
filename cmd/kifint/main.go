package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/shiroemons/go-kifint/internal/app"
	"github.com/shiroemons/go-kifint/internal/config"
)

func main() {
	// コマンドライン引数の解析
	cfg, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		os.Exit(2)
	}

	// バージョン表示の処理
	if config.HandleVersion(os.Stdout, cfg.ShowVersion) {
		return
	}

	// Ctrl+C で索引の作成や抽出を中断できるようにする
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// アプリケーションの実行
	application := app.New(cfg)
	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		stop()
		os.Exit(1)
	}
}
