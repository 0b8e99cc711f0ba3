package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// 收到中斷信號時取消 context，讓服務優雅關閉
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
