package bot

import (
	"context"
	"strings"
)

// HelpHeader opens the /start and /help listing.
const HelpHeader = "Those are the available commands:"

// Request is what a command handler gets: the message, the text after the
// verb, and the chat's dialogue state.
type Request struct {
	Message *Message
	Arg     string
	State   State
}

type handlerFunc func(ctx context.Context, b *Bot, req Request) error

// Command is one entry of the verb table.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Arg         string // placeholder shown in help, empty for verbs without one
	handle      handlerFunc
}

func commandTable() []Command {
	return []Command{
		{Name: "start", Description: "Start the bot", handle: handleHelp},
		{Name: "help", Description: "Show this help", handle: handleHelp},
		{Name: "play", Aliases: []string{"p"}, Description: "Play/Pause music", handle: handlePlay},
		{Name: "next", Aliases: []string{"n"}, Description: "Switch to next track", handle: handleNext},
		{Name: "prev", Description: "Switch to previous track", handle: handlePrev},
		{Name: "current", Aliases: []string{"np"}, Description: "Show information about current song", handle: handleCurrent},
		{Name: "queue", Aliases: []string{"q"}, Description: "Show songs in the queue", handle: handleQueue},
		{Name: "addyt", Aliases: []string{"yt"}, Arg: "url", Description: "Add a song from youtube", handle: handleAddYT},
		{Name: "addfile", Aliases: []string{"file"}, Description: "Add an audio file to the queue", handle: handleAddFile},
		{Name: "stats", Description: "Show DB stats", handle: handleStats},
		{Name: "search", Aliases: []string{"s"}, Arg: "query", Description: "Search in the db", handle: handleSearch},
		{Name: "addrand", Aliases: []string{"rand"}, Arg: "n", Description: "Add random songs", handle: handleAddRand},
		{Name: "addall", Aliases: []string{"all"}, Description: "Add all songs to queue", handle: handleAddAll},
		{Name: "clear", Description: "Clear the queue", handle: handleClear},
		{Name: "shuffle", Description: "Shuffle the queue", handle: handleShuffle},
	}
}

// Commands returns the verb table in help order.
func (b *Bot) Commands() []Command {
	out := make([]Command, len(b.commands))
	copy(out, b.commands)
	return out
}

// lookup resolves a verb or alias.
func (b *Bot) lookup(verb string) (*Command, bool) {
	for i := range b.commands {
		c := &b.commands[i]
		if c.Name == verb {
			return c, true
		}
		for _, a := range c.Aliases {
			if a == verb {
				return c, true
			}
		}
	}
	return nil, false
}

// HelpText renders the command listing.
func (b *Bot) HelpText() string {
	var sb strings.Builder
	sb.WriteString(HelpHeader)
	sb.WriteString("\n\n")
	for i, c := range b.commands {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("/" + c.Name)
		for _, a := range c.Aliases {
			sb.WriteString(", /" + a)
		}
		if c.Arg != "" {
			sb.WriteString(" <" + c.Arg + ">")
		}
		sb.WriteString(" — ")
		sb.WriteString(c.Description)
	}
	return sb.String()
}
