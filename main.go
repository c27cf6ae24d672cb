package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/bwmarrin/discordgo"

	"github.com/stavrostzagadouris/Multifunction-OpenAI-API-GPT-Discord-Bot/config"
	"github.com/stavrostzagadouris/Multifunction-OpenAI-API-GPT-Discord-Bot/flights"
	"github.com/stavrostzagadouris/Multifunction-OpenAI-API-GPT-Discord-Bot/habits"
)

func main() {
	envPath := flag.String("env", ".env", "path to the settings file")
	dbPath := flag.String("db", habits.DefaultDBPath, "path to the habit database")
	flag.Parse()

	cfg, unknown, err := config.Load(*envPath)
	if err != nil {
		log.Fatalf("error loading settings: %v", err)
	}
	for _, key := range unknown {
		log.Printf("ignoring unknown setting %q", key)
	}
	log.Println("config load")

	llm, model, err := newChatClient(cfg)
	if err != nil {
		log.Fatal(err)
	}

	store, err := habits.Open(context.Background(), *dbPath)
	if err != nil {
		log.Fatalf("error opening habit database: %v", err)
	}
	defer store.Close()

	var sky *flights.Client
	if cfg.FlightID != "" && cfg.FlightSecret != "" {
		sky = flights.New(cfg.FlightID, cfg.FlightSecret)
	}

	s, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Fatalf("error creating session: %v", err)
	}

	b := &Bot{
		cfg:     cfg,
		llm:     llm,
		model:   model,
		store:   store,
		sky:     sky,
		discord: s,
	}
	s.AddHandler(b.onReady())
	s.AddHandler(b.onMessage())
	s.AddHandler(b.onCommand())

	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAllWithoutPrivileged)
	err = s.Open()
	if err != nil {
		log.Fatalf("error opening connection: %v", err)
	}
	defer func(s *discordgo.Session) {
		err := s.Close()
		if err != nil {
			log.Println("error closing session:", err)
		}
	}(s)

	for _, cmd := range []*discordgo.ApplicationCommand{habitCommand, flightsCommand} {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", cmd); err != nil {
			log.Fatalf("Cannot create command %q: %v", cmd.Name, err)
		}
	}

	log.Println("bot is now running")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, os.Kill)
	<-stop
}
