package app

import (
	logx "boxfeed/pkg/logx"
)

// Default side-effect sinks for the standalone daemon. A host process
// replaces these via WithSinks; the daemon just logs what a UI would do.

type logSound struct{ log logx.Logger }

func (s logSound) Play(notificationID string) {
	s.log.Info("sound", logx.String("id", notificationID))
}

type logBadge struct{ log logx.Logger }

func (s logBadge) SetCount(n int) {
	s.log.Info("badge", logx.Int("count", n))
}

type logNav struct{ log logx.Logger }

func (s logNav) Route(destination string, payload string) {
	s.log.Info("navigate", logx.String("dest", destination), logx.String("payload", payload))
}
