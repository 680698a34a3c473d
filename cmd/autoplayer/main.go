package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/cbodonnell/hexconquest/pkg/client"
	"github.com/cbodonnell/hexconquest/pkg/log"
	"github.com/cbodonnell/hexconquest/pkg/version"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "WebSocket endpoint of the server")
	token := flag.String("token", os.Getenv("HEXCONQUEST_TOKEN"), "Token to authenticate with")
	gameID := flag.String("game", "", "Game to join")
	userID := flag.String("user", "", "User to join as, must hold a seat in the game")
	seats := flag.String("seats", "", "Comma separated automated seats to play for")
	supply := flag.Int("supply", client.DefaultSupplyAmount, "Dice to request at the start of each turn")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)

	if *gameID == "" || *userID == "" {
		panic("-game and -user must be set")
	}
	autoSeats, err := parseSeats(*seats)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse seats: %v", err))
	}

	log.Info("Starting auto player version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	player := client.NewAutoPlayer(client.NewAutoPlayerOptions{
		URL:          *url,
		Token:        *token,
		GameID:       *gameID,
		UserID:       *userID,
		AutoSeats:    autoSeats,
		SupplyAmount: *supply,
	})
	if err := player.Run(ctx); err != nil {
		log.Error("Auto player stopped: %v", err)
		os.Exit(1)
	}
}

func parseSeats(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var seats []int
	for _, part := range strings.Split(s, ",") {
		seat, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid seat %q: %v", part, err)
		}
		seats = append(seats, seat)
	}
	return seats, nil
}
