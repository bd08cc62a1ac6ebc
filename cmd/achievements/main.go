// Package main - точка входа CLI движка достижений.
//
// Команды работают поверх одного из хранилищ учащихся:
// - YAML-фикстуры (--learners), без записи на диск
// - PostgreSQL (DATABASE_URL) с кешем Redis перед ним
//
// Каталог берётся из встроенного YAML, из --catalog/CATALOG_FILE,
// и дополняется сохранёнными определениями при CATALOG_FROM_DB=true.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	root, cleanup := newRootCmd()
	defer cleanup()

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
