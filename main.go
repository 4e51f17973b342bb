// Package main provides the entry point for the X-ray CBT console.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"xray-cbt/cmd"
	"xray-cbt/internal/version"
)

func main() {
	root := cmd.NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version.Version),
		fang.WithCommit(version.GitCommit),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
