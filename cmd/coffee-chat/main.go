package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/app"
	"github.com/Swuzz123/Coffee-Assistant/internal/config"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/prompts"
)

var quitWords = map[string]bool{
	"q":        true,
	"quit":     true,
	"exit":     true,
	"tạm biệt": true,
}

func main() {
	seed := flag.String("seed", "", "menu CSV imported into an empty catalog")
	customer := flag.String("customer", "", "customer id (anonymous when empty)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}
	cfg.SessionBackend = config.SessionBackendMemory
	if *seed != "" {
		cfg.MenuSeedCSV = *seed
	}

	// Keep the terminal for the conversation.
	log := logging.NewWithOutput(os.Stderr, "warn", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	application, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}
	defer application.Close()

	if err := run(ctx, application, *customer); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, customerID string) error {
	start, err := a.Chat.StartChat(ctx, &models.ChatStartRequest{CustomerID: customerID})
	if err != nil {
		return err
	}
	fmt.Printf("☕ MT Coffee (%s)\n", start.CustomerID)
	fmt.Printf("Bot: %s\n", start.Message)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nBạn: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if quitWords[strings.ToLower(text)] {
			fmt.Printf("Bot: %s\n", prompts.GoodbyeMessage)
			return nil
		}

		resp, err := a.Chat.SendMessage(ctx, &models.ChatMessageRequest{SessionID: start.SessionID, Message: text})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("Bot: %s\n", prompts.FallbackMessage)
			fmt.Fprintf(os.Stderr, "(%v)\n", err)
			continue
		}
		fmt.Printf("Bot: %s\n", resp.Message)
	}
}
