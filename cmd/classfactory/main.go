// Package main runs the classfactory command: it defines the templates of a
// manifest and instantiates them against a SQLite database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	classfactorycmd "github.com/louisbranch/classfactory/internal/cmd/classfactory"
	"github.com/louisbranch/classfactory/internal/platform/config"
	apperrors "github.com/louisbranch/classfactory/internal/platform/errors"
)

func main() {
	cfg, err := classfactorycmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[CLASSFACTORY] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = classfactorycmd.Run(ctx, cfg)
	stop()
	if err != nil {
		log.Printf("classfactory [%s]: %v", apperrors.CodeOf(err), err)
		os.Exit(classfactorycmd.ExitCode(err))
	}
}
