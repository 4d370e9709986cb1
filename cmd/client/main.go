package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"github.com/DoyleJ11/spock-server/internal/client"
	"github.com/DoyleJ11/spock-server/internal/config"
	"github.com/DoyleJ11/spock-server/internal/transport"
)

const defaultPort = 5131

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		config.Exitf("usage: %s <server_ip> [port]", os.Args[0])
	}
	port := defaultPort
	if len(os.Args) == 3 {
		p, err := strconv.Atoi(os.Args[2])
		if err != nil || p <= 0 {
			config.Exitf("invalid port %q", os.Args[2])
		}
		port = p
	}

	logger := slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger))

	addr := net.JoinHostPort(os.Args[1], strconv.Itoa(port))
	spinner, _ := pterm.DefaultSpinner.Start("Connecting to " + addr + " ...")
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		spinner.Fail()
		config.Exitf("could not connect to server %s: %v", addr, err)
	}
	spinner.Success("Connected to " + addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(transport.NewLineConn(conn), os.Stdin, os.Stdout, logger)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("session ended", "error", err)
		os.Exit(1)
	}
	pterm.Info.Println("Connection closed.")
}
