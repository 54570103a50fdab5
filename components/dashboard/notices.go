package dashboard

import (
	"context"
	"time"

	"github.com/luno/jettison/errors"
)

// NoticeLevel controls how a notice is presented.
type NoticeLevel string

const (
	// NoticeBlocking must be acknowledged by the user.
	NoticeBlocking NoticeLevel = "blocking"
	// NoticeInline sits next to the form that caused it.
	NoticeInline NoticeLevel = "inline"
	// NoticeTransient hides itself after AutoHide.
	NoticeTransient NoticeLevel = "transient"
)

// DefaultNoticeAutoHide is how long transient notices stay visible.
const DefaultNoticeAutoHide = 3 * time.Second

// Notice is a user-facing message about a refused operation.
type Notice struct {
	Level    NoticeLevel   `json:"level"`
	Message  string        `json:"message"`
	AutoHide time.Duration `json:"auto_hide,omitempty"`
}

// NoticeFor maps an operation error to what the user should see.
// Persistence and fetch failures are never surfaced as notices.
func NoticeFor(err error) (Notice, bool) {
	switch {
	case err == nil:
		return Notice{}, false
	case errors.Is(err, ErrLimitExceeded):
		return Notice{Level: NoticeBlocking, Message: err.Error()}, true
	case errors.Is(err, ErrValidation):
		return Notice{Level: NoticeInline, Message: err.Error()}, true
	case errors.Is(err, ErrPolicy):
		return Notice{Level: NoticeTransient, Message: "Cannot delete the only dashboard", AutoHide: DefaultNoticeAutoHide}, true
	case errors.Is(err, ErrOverlap):
		return Notice{Level: NoticeTransient, Message: "Widgets cannot overlap", AutoHide: DefaultNoticeAutoHide}, true
	}
	return Notice{}, false
}

// NoticeSink receives user-facing notices.
type NoticeSink interface {
	Notify(ctx context.Context, notice Notice)
}

// Notify publishes a notice to board subscribers.
func (b *ViewBoard) Notify(_ context.Context, notice Notice) {
	n := notice
	b.broadcast(BoardEvent{Kind: "notice", Notice: &n})
}

// Report turns err into a notice on sink when it is user-facing and
// returns err unchanged.
func Report(ctx context.Context, sink NoticeSink, err error) error {
	if sink == nil {
		return err
	}
	if notice, ok := NoticeFor(err); ok {
		sink.Notify(ctx, notice)
	}
	return err
}
