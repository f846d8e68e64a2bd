package bot

import (
	"context"
	"strings"
	"unicode"
)

// ParseCommand splits "/verb[@bot] rest" into its parts. ok is false for
// text that is not a command or that mentions a different bot. The verb is
// returned as written; rest is trimmed.
func ParseCommand(text, username string) (verb, rest string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, tail := text[1:], ""
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		head, tail = head[:i], head[i:]
	}
	verb, mention, hasMention := strings.Cut(head, "@")
	if verb == "" {
		return "", "", false
	}
	if hasMention && username != "" && !strings.EqualFold(mention, strings.TrimPrefix(username, "@")) {
		return "", "", false
	}
	return verb, strings.TrimSpace(tail), true
}

// HandleMessage routes a message to its command handler. Unknown verbs and
// non-command text are ignored.
func (b *Bot) HandleMessage(ctx context.Context, msg *Message) error {
	verb, rest, ok := ParseCommand(msg.Text, b.Username())
	if !ok {
		return nil
	}
	cmd, ok := b.lookup(verb)
	if !ok {
		b.log.Debugf("ignoring unknown command /%s", verb)
		return nil
	}

	req := Request{
		Message: msg,
		Arg:     rest,
		State:   b.dialogues.Get(msg.ChatID),
	}
	if cmd.Arg == "" {
		req.Arg = ""
	}
	b.log.Debugf("chat %d: /%s %q", msg.ChatID, cmd.Name, req.Arg)
	return cmd.handle(ctx, b, req)
}
