package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hybridz/tapdraw/internal/agent"
	"github.com/hybridz/tapdraw/internal/config"
	"github.com/hybridz/tapdraw/internal/lnurl"
	"github.com/hybridz/tapdraw/internal/nfc"
	"github.com/hybridz/tapdraw/internal/withdraw"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "tap":
		handleTap(os.Args[2:])
	case "decode":
		handleDecode(os.Args[2:])
	case "status":
		handleStatus()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func handleTap(args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Validate()

	var invoice string
	agentURL := cfg.Agent.URL
	relay := cfg.Withdraw.Relay

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--invoice":
			if i+1 < len(args) {
				invoice = args[i+1]
				i++
			}
		case "--agent":
			if i+1 < len(args) {
				agentURL = args[i+1]
				i++
			}
		case "--relay":
			if i+1 < len(args) {
				relay = args[i+1]
				i++
			}
		default:
			// Allow positional: tap lnbc...
			if invoice == "" && strings.HasPrefix(strings.ToLower(args[i]), "ln") {
				invoice = args[i]
			}
		}
	}

	if invoice == "" {
		fmt.Fprintln(os.Stderr, "usage: tapdraw-cli tap --invoice lnbc...")
		os.Exit(1)
	}

	session := nfc.NewSession(agent.NewClient(agentURL))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("waiting for tap (agent=%s)", agentURL)
	endpoint, err := session.ListenOnce(ctx)
	if err != nil {
		log.Fatalf("read tag: %v", err)
	}
	log.Printf("tag resolved to %s", endpoint)

	outcome := withdraw.NewClient(relay).Withdraw(ctx, endpoint, invoice)
	if outcome.Success {
		fmt.Println(outcome.Message)
		return
	}

	source := "local"
	if outcome.RemoteMessage {
		source = "service"
	}
	fmt.Fprintf(os.Stderr, "withdraw failed (%s): %s\n", source, outcome.Message)
	os.Exit(1)
}

func handleDecode(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: tapdraw-cli decode LNURL1...")
		os.Exit(1)
	}

	c := lnurl.Classify(args[0])
	switch c.Strength {
	case lnurl.Confirmed:
		fmt.Printf("confirmed: %s\n", c.Value)
	case lnurl.Possible:
		fmt.Printf("possible: %s\n", c.Value)
	default:
		fmt.Fprintln(os.Stderr, "not a withdraw endpoint")
		os.Exit(1)
	}
}

func handleStatus() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Validate()

	resp, err := http.Get(strings.TrimRight(cfg.Agent.URL, "/") + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent unreachable: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		fmt.Println("agent: ok")
	} else {
		fmt.Fprintf(os.Stderr, "agent: unhealthy (status %d)\n", resp.StatusCode)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tapdraw-cli — withdraw over lnurl from an NFC tag

Commands:
  tap --invoice lnbc... [--agent URL] [--relay URL]   Wait for a tag, then withdraw
  decode LNURL1...                                    Classify a tag payload
  status                                              Check reader agent health
  help                                                Show this help

Environment:
  TAPDRAW_AGENT_URL   Reader agent base URL (default: http://127.0.0.1:18791)
  TAPDRAW_RELAY       Relay URL for outbound fetches (default: direct)
  TAPDRAW_CONFIG      Config file path (default: ~/.config/tapdraw/config.toml)`)
}
