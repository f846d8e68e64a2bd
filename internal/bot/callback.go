package bot

import (
	"context"
	"errors"

	"github.com/pasta/tmpc/internal/selection"
)

// HandleCallback routes an inline button press by the payload's last byte.
// Presses that refer to a consumed or unknown selection are acknowledged and
// otherwise ignored.
func (b *Bot) HandleCallback(ctx context.Context, cb *Callback) error {
	id, tag := selection.SplitPayload(cb.Data)
	switch tag {
	case selection.TagInsert:
		return b.insertNext(ctx, cb, id)
	case selection.TagNoop:
		return b.msg.AnswerCallback(ctx, cb.ID)
	default:
		b.log.Warnf("Unhandled callback query command: %q", tag)
		return b.msg.AnswerCallback(ctx, cb.ID)
	}
}

func (b *Bot) insertNext(ctx context.Context, cb *Callback, id string) error {
	path, err := b.sel.Get(id)
	if errors.Is(err, selection.ErrNotFound) {
		b.log.Debugf("stale selection %s", id)
		return b.msg.AnswerCallback(ctx, cb.ID)
	}
	if err != nil {
		return err
	}

	song, err := b.player.FindByFile(path)
	if err != nil {
		return err
	}
	if song == nil {
		b.log.Debugf("%s is no longer in the catalog", path)
		return b.msg.AnswerCallback(ctx, cb.ID)
	}
	cur, err := b.player.CurrentSong()
	if err != nil {
		return err
	}
	if cur == nil || cur.Place == nil {
		return b.msg.AnswerCallback(ctx, cb.ID)
	}

	if err := b.player.InsertAt(*song, cur.Place.Pos+1); err != nil {
		return err
	}
	b.log.Infof("inserted %s at %d", song.File, cur.Place.Pos+1)

	if err := b.msg.AnswerCallback(ctx, cb.ID); err != nil {
		return err
	}
	if cb.MessageID != 0 {
		if err := b.msg.Edit(ctx, cb.ChatID, cb.MessageID, textSongAdded); err != nil {
			return err
		}
	}
	if err := b.sel.DropGeneration(id); err != nil {
		b.log.Warnf("dropping selections: %v", err)
	}
	return nil
}
