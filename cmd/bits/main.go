// Command bits 生成和解析 Snowflake ID。
//
//	bits make -n 5 --worker 15
//	bits parse 1537200202186752
//	bits bounds 2024-03-01T00:30:00Z
//
// 配置按 flag > 环境变量(BITS_*) > 配置文件 > 默认值 的优先级合并。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
