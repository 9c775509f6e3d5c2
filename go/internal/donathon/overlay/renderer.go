package overlay

import (
	"github.com/mcdev12/donathon/go/internal/donathon/sequencer"
	"github.com/mcdev12/donathon/go/internal/donathon/timer"
	"github.com/rs/zerolog/log"
)

// Renderer is the presentation capability the overlay paints through. The
// core never assumes a concrete presentation technology.
type Renderer interface {
	SetStatusIcon(status timer.Status) error
	SetTimerText(text string) error
	SetPointsText(text string) error
	sequencer.Renderer
}

// DisplayRenderer is implemented by renderers that also show the display configuration
type DisplayRenderer interface {
	SetDisplayConfig(cfg DisplayConfig) error
}

// LogRenderer writes render calls to the log. Useful when running headless.
type LogRenderer struct{}

func (LogRenderer) SetStatusIcon(status timer.Status) error {
	log.Debug().Str("status", string(status)).Msg("render status icon")
	return nil
}

func (LogRenderer) SetTimerText(text string) error {
	log.Debug().Str("timer", text).Msg("render timer")
	return nil
}

func (LogRenderer) SetPointsText(text string) error {
	log.Debug().Str("points", text).Msg("render points")
	return nil
}

func (LogRenderer) ShowNotification(html string) error {
	log.Info().Str("notification", html).Msg("show notification")
	return nil
}

func (LogRenderer) HideNotification() error {
	log.Debug().Msg("hide notification")
	return nil
}

// MultiRenderer fans render calls out to several renderers. Every renderer is
// called even if an earlier one fails; the first error is returned.
type MultiRenderer []Renderer

func (m MultiRenderer) SetStatusIcon(status timer.Status) error {
	return m.each(func(r Renderer) error { return r.SetStatusIcon(status) })
}

func (m MultiRenderer) SetTimerText(text string) error {
	return m.each(func(r Renderer) error { return r.SetTimerText(text) })
}

func (m MultiRenderer) SetPointsText(text string) error {
	return m.each(func(r Renderer) error { return r.SetPointsText(text) })
}

func (m MultiRenderer) ShowNotification(html string) error {
	return m.each(func(r Renderer) error { return r.ShowNotification(html) })
}

func (m MultiRenderer) HideNotification() error {
	return m.each(func(r Renderer) error { return r.HideNotification() })
}

func (m MultiRenderer) SetDisplayConfig(cfg DisplayConfig) error {
	return m.each(func(r Renderer) error {
		if dr, ok := r.(DisplayRenderer); ok {
			return dr.SetDisplayConfig(cfg)
		}
		return nil
	})
}

func (m MultiRenderer) each(fn func(Renderer) error) error {
	var first error
	for _, r := range m {
		if err := fn(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
