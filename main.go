package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dezap/internal/cliapp"
	"dezap/internal/config"
	"dezap/internal/logging"
	"dezap/internal/service"
	"dezap/internal/tui"
)

const (
	PackageName  = "dezap"
	ListenMode   = "listen"
	SendTextMode = "send-text"
	SendFileMode = "send-file"
	TUIMode      = "tui"
	ListenIcon   = "🌐"
	SendIcon     = "📡"
)

func main() {
	cfg, err := config.NewDefaultManager().Configuration()
	if err != nil {
		fmt.Printf("❌ failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewStdLogger(logging.ParseLevel(cfg.Logging.Level))

	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var mode string
	if len(os.Args) < 2 {
		mode = strings.ToLower(strings.TrimSpace(promptForMode()))
	} else {
		mode = os.Args[1]
	}

	svc, err := service.New(*cfg, log)
	if err != nil {
		fmt.Printf("❌ failed to start service: %v\n", err)
		os.Exit(1)
	}
	go svc.Run(appCtx)

	switch mode {
	case ListenMode:
		fmt.Printf("%s starting listener...\n", ListenIcon)
		if err := cliapp.RunListener(appCtx, appCtxCancel, svc, cfg.Listen.BindAddr, cfg.Listen.Password, sigChan, log); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	case SendTextMode:
		addr, text := requireTwoArgs(os.Args, "send-text <addr> <text>")
		fmt.Printf("%s sending text to %s...\n", SendIcon, addr)
		if err := cliapp.RunSendText(appCtx, appCtxCancel, svc, addr, cfg.Peer.Password, text, log); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	case SendFileMode:
		addr, path := requireTwoArgs(os.Args, "send-file <addr> <path>")
		fmt.Printf("%s sending %s to %s...\n", SendIcon, path, addr)
		if err := cliapp.RunSendFile(appCtx, appCtxCancel, svc, addr, cfg.Peer.Password, path, log); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	case TUIMode:
		if err := tui.Run(svc, cfg.UI); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("❌ unknown mode: %s\n", mode)
		printUsage()
		os.Exit(1)
	}
}

func requireTwoArgs(args []string, usage string) (string, string) {
	if len(args) < 4 {
		fmt.Printf("❌ usage: %s %s\n", PackageName, usage)
		os.Exit(1)
	}
	return args[2], args[3]
}

func promptForMode() string {
	fmt.Printf("✨ Welcome to %s!\n", PackageName)
	fmt.Println("Please select mode:")
	fmt.Printf("\t %s - Listen %s\n", ListenMode, ListenIcon)
	fmt.Printf("\t %s - Send text %s\n", SendTextMode, SendIcon)
	fmt.Printf("\t %s - Send file %s\n", SendFileMode, SendIcon)
	fmt.Printf("\t %s - Interactive terminal UI\n", TUIMode)
	fmt.Print("👉 Your choice: ")

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}

func printUsage() {
	fmt.Printf(`Usage: %s <mode> [args]
Modes:
  %s                        - %s
  %s <addr> <text>  - %s
  %s <addr> <path>  - %s
  %s                           - interactive terminal UI
`, PackageName, ListenMode, ListenIcon, SendTextMode, SendIcon, SendFileMode, SendIcon, TUIMode)
}
