package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/stavrostzagadouris/Multifunction-OpenAI-API-GPT-Discord-Bot/config"
	"github.com/stavrostzagadouris/Multifunction-OpenAI-API-GPT-Discord-Bot/flights"
	"github.com/stavrostzagadouris/Multifunction-OpenAI-API-GPT-Discord-Bot/habits"
)

// historyLimit is how many recent channel messages feed a chat completion.
const historyLimit = 20

// discordMessageLimit is Discord's hard cap on message length.
const discordMessageLimit = 2000

var habitCommand = &discordgo.ApplicationCommand{
	Name:        "habit",
	Description: "Track your habits",
	Type:        discordgo.ChatApplicationCommand,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Start tracking a new habit",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the habit", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reminder", Description: "Reminder time, e.g. 09:00", Required: false},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "Show your habits and streaks",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "done",
			Description: "Mark a habit completed for today",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the habit", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "reset",
			Description: "Reset a habit's streak to zero",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the habit", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remind",
			Description: "Change a habit's reminder time",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the habit", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "time", Description: "New reminder time, e.g. 09:00", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Stop tracking a habit",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Name of the habit", Required: true},
			},
		},
	},
}

var flightsCommand = &discordgo.ApplicationCommand{
	Name:        "flights",
	Description: "What's flying overhead right now",
	Type:        discordgo.ChatApplicationCommand,
}

type Bot struct {
	cfg     *config.Config
	llm     *openai.Chat
	model   string
	store   *habits.Store
	sky     *flights.Client
	discord *discordgo.Session
}

// onReady announces startup in the main channel when one is configured.
func (b *Bot) onReady() func(s *discordgo.Session, r *discordgo.Ready) {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		log.Println("bot is ready")
		if b.cfg.MainChannelID == 0 {
			return
		}
		channelID := fmt.Sprintf("%d", b.cfg.MainChannelID)
		if _, err := s.ChannelMessageSend(channelID, "Hello! I'm up and running."); err != nil {
			log.Println("error announcing readiness:", err)
		}
	}
}

// onCommand handles the registered slash commands.
func (b *Bot) onCommand() func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		switch i.ApplicationCommandData().Name {
		case habitCommand.Name:
			b.handleHabit(s, i)
		case flightsCommand.Name:
			b.handleFlights(s, i)
		}
	}
}

func (b *Bot) handleHabit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID := interactionUserID(i)
	sub := i.ApplicationCommandData().Options[0]
	opts := make(map[string]string, len(sub.Options))
	for _, o := range sub.Options {
		opts[o.Name] = o.StringValue()
	}

	var reply string
	var err error
	switch sub.Name {
	case "add":
		err = b.store.Create(ctx, userID, opts["name"], opts["reminder"])
		reply = fmt.Sprintf("Now tracking **%s**. Good luck!", opts["name"])
	case "list":
		var list []habits.Habit
		list, err = b.store.List(ctx, userID)
		reply = formatHabits(list)
	case "done":
		err = b.store.MarkCompleted(ctx, userID, opts["name"])
		reply = fmt.Sprintf("Marked **%s** as done. Keep the streak going!", opts["name"])
	case "reset":
		err = b.store.ResetStreak(ctx, userID, opts["name"])
		reply = fmt.Sprintf("Streak for **%s** reset to zero.", opts["name"])
	case "remind":
		err = b.store.UpdateReminder(ctx, userID, opts["name"], opts["time"])
		reply = fmt.Sprintf("Reminder for **%s** set to %s.", opts["name"], opts["time"])
	case "remove":
		err = b.store.Delete(ctx, userID, opts["name"])
		reply = fmt.Sprintf("No longer tracking **%s**.", opts["name"])
	default:
		return
	}
	if err != nil {
		log.Println("habit command error:", err)
		reply = "Sorry, that didn't work: " + err.Error()
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: truncate(reply, discordMessageLimit)},
	}, discordgo.WithRetryOnRatelimit(true), discordgo.WithContext(ctx))
	if err != nil {
		log.Println("error responding to habit command:", err)
	}
}

func formatHabits(list []habits.Habit) string {
	if len(list) == 0 {
		return "You aren't tracking any habits yet. Try `/habit add`."
	}
	var sb strings.Builder
	sb.WriteString("Your habits:\n")
	for _, h := range list {
		fmt.Fprintf(&sb, "- **%s**: streak %d", h.Name, h.Streak)
		if h.ReminderTime != "" {
			fmt.Fprintf(&sb, ", reminder at %s", h.ReminderTime)
		}
		if h.LastCompleted != nil {
			fmt.Fprintf(&sb, ", last done %s", h.LastCompleted.Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (b *Bot) handleFlights(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// The report makes several upstream calls, so acknowledge first.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithRetryOnRatelimit(true), discordgo.WithContext(ctx))
	if err != nil {
		log.Println("error deferring flights command:", err)
		return
	}

	var content string
	if b.sky == nil {
		content = "Flight tracking isn't configured. Set flight_id and flight_secret in the settings file."
	} else {
		report, err := b.sky.Report(ctx, b.cfg.MyLat, b.cfg.MyLon, b.cfg.MyRadius)
		if err != nil {
			log.Println("error building flight report:", err)
			content = "Couldn't fetch flight data: " + err.Error()
		} else {
			content = report
		}
	}

	content = truncate(content, discordMessageLimit)
	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content},
		discordgo.WithRetryOnRatelimit(true), discordgo.WithContext(ctx))
	if err != nil {
		log.Println("error sending flight report:", err)
	}
}

// onMessage replies with a chat completion when the bot is mentioned in a
// guild text channel.
func (b *Bot) onMessage() func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute) // local generation can be slow with lots of tokens
		defer cancel()

		if m.Author.ID == s.State.User.ID {
			return
		}
		if !mentionsUser(m.Mentions, s.State.User.ID) {
			return
		}

		channel, err := s.State.Channel(m.ChannelID)
		if err != nil {
			log.Println("error fetching channel:", err)
			return
		}
		if channel.Type != discordgo.ChannelTypeGuildText {
			return
		}

		messages, err := s.ChannelMessages(m.ChannelID, historyLimit, "", "", "")
		if err != nil {
			log.Println("error fetching messages:", err)
			return
		}

		completionMessages, err := b.getCompletionMessages(s, m, messages)
		if err != nil {
			log.Println("error getting completion messages:", err)
			return
		}

		resp, err := b.handleTypingAndCompletion(ctx, s, m, completionMessages)
		if err != nil {
			log.Println("error handling typing and completion:", err)
			return
		}
		_, err = s.ChannelMessageSend(m.ChannelID, truncate(resp, discordMessageLimit), discordgo.WithContext(ctx))
		if err != nil {
			log.Println("error sending message:", err)
			return
		}
	}
}

// handleTypingAndCompletion keeps the typing indicator alive while the
// completion runs.
func (b *Bot) handleTypingAndCompletion(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, completionMessages []schema.ChatMessage) (string, error) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			err := s.ChannelTyping(m.ChannelID, discordgo.WithRetryOnRatelimit(true), discordgo.WithContext(ctx))
			if err != nil {
				log.Println("error typing:", err)
				return
			}
		}
	}()

	resp, err := b.llm.Call(
		ctx,
		completionMessages,
		llms.WithModel(b.model),
		llms.WithTemperature(b.cfg.ModelTemp),
	)
	if err != nil {
		return "", fmt.Errorf("error creating chat completion: %w", err)
	}
	return resp.Content, nil
}

// getCompletionMessages turns recent channel history into chat messages,
// oldest first, with the persona prompt in front.
func (b *Bot) getCompletionMessages(s *discordgo.Session, m *discordgo.MessageCreate, messages []*discordgo.Message) ([]schema.ChatMessage, error) {
	now := time.Now().In(b.cfg.TimeLocation())
	system := schema.SystemChatMessage{
		Content: fmt.Sprintf("You are Wheatley, a helpful and slightly eccentric personal assistant on Discord. "+
			"The local time is %s. Keep replies short enough for a chat channel.",
			now.Format("Monday, January 2 2006 at 3:04 PM")),
	}

	completionMessages := []schema.ChatMessage{}
	for _, message := range messages {
		var cm schema.ChatMessage
		if message.Author.ID == s.State.User.ID {
			cm = schema.AIChatMessage{Content: message.Content}
		} else {
			name, err := getNickname(s, m.GuildID, message.Author.ID)
			if err != nil {
				log.Println("error getting nickname:", err)
				return nil, err
			}
			cm = schema.HumanChatMessage{Content: fmt.Sprintf("(%s) %s", name, message.Content)}
		}
		completionMessages = append([]schema.ChatMessage{cm}, completionMessages...)
	}
	return append([]schema.ChatMessage{system}, completionMessages...), nil
}

// getNickname returns the nickname of the user
func getNickname(s *discordgo.Session, guildID string, userID string) (string, error) {
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return "", err
	}

	if member.Nick != "" {
		return member.Nick, nil
	}
	return member.User.Username, nil
}

func mentionsUser(mentions []*discordgo.User, userID string) bool {
	for _, u := range mentions {
		if u.ID == userID {
			return true
		}
	}
	return false
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		return i.Member.User.ID
	}
	return i.User.ID
}

// truncate caps s at max characters; Discord counts runes, not bytes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
