package dashboard

import (
	"context"
	"testing"

	"github.com/luno/jettison/errors"
	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	notices []Notice
}

func (s *recordingSink) Notify(_ context.Context, n Notice) {
	s.notices = append(s.notices, n)
}

func TestNoticeFor(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		level NoticeLevel
		msg   string
		ok    bool
	}{
		{name: "limit", err: errors.Wrap(ErrLimitExceeded, "too many"), level: NoticeBlocking, ok: true},
		{name: "validation", err: errors.Wrap(ErrValidation, "select at least one node"), level: NoticeInline, ok: true},
		{name: "policy", err: errors.Wrap(ErrPolicy, "last dashboard"), level: NoticeTransient, msg: "Cannot delete the only dashboard", ok: true},
		{name: "overlap", err: ErrOverlap, level: NoticeTransient, msg: "Widgets cannot overlap", ok: true},
		{name: "persistence", err: errors.Wrap(ErrPersistence, "remote down")},
		{name: "fetch", err: ErrFetch},
		{name: "nil"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := NoticeFor(tc.err)
			assert.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			assert.Equal(t, tc.level, n.Level)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, n.Message)
			} else {
				assert.NotEmpty(t, n.Message)
			}
			if n.Level == NoticeTransient {
				assert.Equal(t, DefaultNoticeAutoHide, n.AutoHide)
			}
		})
	}
}

func TestReportForwardsUserFacingErrors(t *testing.T) {
	sink := &recordingSink{}
	ctx := context.Background()

	err := Report(ctx, sink, ErrOverlap)
	assert.ErrorIs(t, err, ErrOverlap)
	assert.Nil(t, Report(ctx, sink, nil))
	_ = Report(ctx, sink, ErrFetch)

	assert.Len(t, sink.notices, 1)
	assert.ErrorIs(t, Report(ctx, nil, ErrPolicy), ErrPolicy)
}
