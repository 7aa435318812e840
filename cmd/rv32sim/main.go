// Package main provides the rv32sim command line.
// rv32sim executes RV32I machine code in a functional interpreter.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	var exit *exitError
	switch {
	case errors.As(err, &exit):
		os.Exit(exit.code)
	case err != nil:
		log.Error(err)
		os.Exit(1)
	}
}
