// Package effects gates and triggers the pipeline's side effects: sound
// playback, badge-count updates, and tap-driven navigation.
//
// All three are fire-and-forget. A failing or panicking sink is the
// collaborator's problem; it can never corrupt the store or the queue.
package effects

import (
	"golang.org/x/time/rate"

	"boxfeed/internal/notify"
	logx "boxfeed/pkg/logx"
)

// SoundPlayer, BadgeUpdater and Navigator are the effect sinks owned by the
// host. The dispatcher never inspects their behavior beyond calling them.
type SoundPlayer interface {
	Play(notificationID string)
}

type BadgeUpdater interface {
	SetCount(n int)
}

type Navigator interface {
	Route(destination string, payload string)
}

// Known navigation destinations.
const (
	DestOrderDetail = "order_detail"
	DestBoxDetail   = "box_detail"
	DestPromotion   = "promotion"
	DestSocialFeed  = "social_feed"
	DestSystemNote  = "system_message"
)

type Config struct {
	EnableSounds bool
	EnableBadges bool
	// SoundRatePerSec caps how often the sound sink fires during event
	// bursts. <=0 falls back to 2/s.
	SoundRatePerSec int
}

// Dispatcher applies the gating rules before touching any sink.
type Dispatcher struct {
	cfg   Config
	sound SoundPlayer
	badge BadgeUpdater
	nav   Navigator

	limiter *rate.Limiter
	log     logx.Logger
}

func NewDispatcher(cfg Config, sound SoundPlayer, badge BadgeUpdater, nav Navigator, log logx.Logger) *Dispatcher {
	rps := cfg.SoundRatePerSec
	if rps <= 0 {
		rps = 2
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		cfg:     cfg,
		sound:   sound,
		badge:   badge,
		nav:     nav,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// PlaySound fires the sound sink only if the global toggle, the user's sound
// setting and the notification's own flag all agree. Otherwise a silent no-op.
func (d *Dispatcher) PlaySound(n notify.Notification, settings notify.Settings) {
	if d.sound == nil || !d.cfg.EnableSounds || !settings.Sound || !n.PlaySound {
		return
	}
	if !d.limiter.Allow() {
		d.log.Debug("sound suppressed by rate limit", logx.String("id", n.ID))
		return
	}
	d.safely("sound", func() { d.sound.Play(n.ID) })
}

// UpdateBadge pushes the unread count to the badge sink if badges are enabled.
func (d *Dispatcher) UpdateBadge(count int) {
	if d.badge == nil || !d.cfg.EnableBadges {
		return
	}
	d.safely("badge", func() { d.badge.SetCount(count) })
}

// HandleTap routes a tapped notification. Unknown categories do nothing.
func (d *Dispatcher) HandleTap(n notify.Notification) {
	dest, payload, ok := RouteFor(n)
	if !ok || d.nav == nil {
		return
	}
	d.safely("navigate", func() { d.nav.Route(dest, payload) })
}

// RouteFor is the pure category->destination mapping.
func RouteFor(n notify.Notification) (destination, payload string, ok bool) {
	switch n.Category {
	case notify.CategoryOrder:
		return DestOrderDetail, dataString(n, "orderId"), true
	case notify.CategoryBox:
		return DestBoxDetail, dataString(n, "boxId"), true
	case notify.CategoryPromotion:
		return DestPromotion, dataString(n, "promotionId"), true
	case notify.CategorySocial:
		return DestSocialFeed, "", true
	case notify.CategorySystem:
		return DestSystemNote, n.Body, true
	default:
		return "", "", false
	}
}

func dataString(n notify.Notification, key string) string {
	if n.Data == nil {
		return ""
	}
	s, _ := n.Data[key].(string)
	return s
}

// safely shields the pipeline from sink panics.
func (d *Dispatcher) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("effect sink panicked", logx.String("sink", kind), logx.Any("panic", r))
		}
	}()
	fn()
}
