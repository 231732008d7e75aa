package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	photogrid "github.com/menta2k/photo-grid"
	"github.com/menta2k/photo-grid/internal/cli"
)

func main() {
	root := cli.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(photogrid.GetVersion()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
