package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hybridz/tapdraw/internal/agent"
	"github.com/hybridz/tapdraw/internal/config"
	"github.com/hybridz/tapdraw/internal/nfc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Validate()

	addr := flag.String("addr", cfg.Agent.Addr, "listen address")
	flag.Parse()

	srv := agent.NewServer(*addr, &stdinCapability{in: os.Stdin})

	// Graceful shutdown.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-stop
		log.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Printf("tag payloads are read line-by-line from stdin")
	if err := srv.Start(); err != nil {
		log.Printf("agent stopped: %v", err)
	}
}

// stdinCapability simulates reader hardware: every non-empty line read from
// stdin becomes a single-record read event. It lets the whole pipeline run
// on machines without a physical reader attached.
type stdinCapability struct {
	in io.Reader
}

func (s *stdinCapability) Available() bool { return true }

func (s *stdinCapability) Scan(ctx context.Context, onRead nfc.ReadHandler, onError nfc.ErrorHandler) error {
	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			onRead(&nfc.Message{Records: []nfc.Record{{
				Type:    "text",
				Payload: []byte(line),
			}}})
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil && onError != nil {
			onError(err)
		}
	}()
	return nil
}
