package service

import (
	"testing"
	"time"

	"github.com/layer-3/questhub/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToastProjection_ShowsNewUnreadBadges(t *testing.T) {
	s, clk := newStore()
	p := NewToastProjection(s, clk, &FakeNavigator{}, nil, 0)
	defer p.Stop()

	_, _ = s.Add(core.Notification{ID: "sys", Kind: core.KindSystem})
	assert.Empty(t, p.Toasts())

	read := badge("read")
	read.Read = true
	_, _ = s.Add(read)
	assert.Empty(t, p.Toasts())

	_, _ = s.Add(badge("b1"))
	toasts := p.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "b1", toasts[0].ID)
	assert.Equal(t, core.ToastVisible, toasts[0].Phase)
	assert.Equal(t, epoch.Add(DefaultToastTTL), toasts[0].ExpiresAt)

	// unrelated mutations do not toast the same badge twice
	require.NoError(t, s.MarkRead("sys"))
	assert.Len(t, p.Toasts(), 1)
}

func TestToastProjection_AutoDismiss(t *testing.T) {
	s, clk := newStore()
	p := NewToastProjection(s, clk, nil, nil, 0)
	defer p.Stop()

	_, _ = s.Add(badge("b1"))

	clk.Advance(DefaultToastTTL - time.Millisecond)
	require.Len(t, p.Toasts(), 1)
	assert.Equal(t, core.ToastVisible, p.Toasts()[0].Phase)

	clk.Advance(time.Millisecond)
	require.Len(t, p.Toasts(), 1)
	assert.Equal(t, core.ToastExiting, p.Toasts()[0].Phase)

	clk.Advance(DefaultToastExit)
	assert.Empty(t, p.Toasts())
}

// Closing twice or after expiry does nothing.
func TestToastProjection_CloseIsIdempotent(t *testing.T) {
	s, clk := newStore()
	p := NewToastProjection(s, clk, nil, nil, 0)
	defer p.Stop()

	_, _ = s.Add(badge("b1"))

	p.Close("b1")
	p.Close("b1")
	clk.Advance(DefaultToastExit)
	assert.Empty(t, p.Toasts())

	assert.NotPanics(t, func() { p.Close("b1") })
	assert.NotPanics(t, func() { p.Close("never-existed") })

	// the stopped expiry timer never fires a second removal
	clk.Advance(DefaultToastTTL)
	assert.Zero(t, clk.Pending())
}

func TestToastProjection_IndependentWindows(t *testing.T) {
	s, clk := newStore()
	p := NewToastProjection(s, clk, nil, nil, 0)
	defer p.Stop()

	_, _ = s.Add(badge("b1"))
	clk.Advance(2 * time.Second)
	_, _ = s.Add(badge("b2"))

	clk.Advance(3*time.Second + DefaultToastExit)
	toasts := p.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "b2", toasts[0].ID)

	clk.Advance(2 * time.Second)
	assert.Empty(t, p.Toasts())
}

func TestToastProjection_Click(t *testing.T) {
	s, clk := newStore()
	nav := &FakeNavigator{}
	p := NewToastProjection(s, clk, nav, nil, 0)
	defer p.Stop()

	_, _ = s.Add(badge("b1"))

	route, err := p.Click("b1")
	require.NoError(t, err)
	assert.Equal(t, "/badges/b1", route)
	assert.Equal(t, []string{"/badges/b1"}, nav.Routes())

	n, _ := s.Get("b1")
	assert.True(t, n.Read)
	assert.Equal(t, core.ToastExiting, p.Toasts()[0].Phase)

	_, err = p.Click("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		n    core.Notification
		want string
	}{
		{badge("b1"), "/badges/b1"},
		{core.Notification{Kind: core.KindQuestCompleted, Payload: core.NotificationPayload{QuestID: "q9"}}, "/quests/q9"},
		{core.Notification{Kind: core.KindQuestCompleted}, "/quests"},
		{core.Notification{Kind: core.KindRewardReceived}, ""},
		{core.Notification{Kind: core.KindLevelUp}, ""},
		{core.Notification{Kind: core.KindSystem}, ""},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, RouteFor(test.n), string(test.n.Kind))
	}
}

func TestToastProjection_ForgetsRemovedNotifications(t *testing.T) {
	s, clk := newStore()
	p := NewToastProjection(s, clk, nil, nil, 0)
	defer p.Stop()

	_, _ = s.Add(badge("b1"))
	_, _ = s.Add(badge("b2"))
	assert.Len(t, p.seen, 2)

	require.NoError(t, s.Remove("b1"))
	assert.Len(t, p.seen, 1)

	s.Clear()
	assert.Empty(t, p.seen)
}
