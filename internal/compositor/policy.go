package compositor

import (
	"github.com/bnema/waycore/internal/logger"
	"github.com/bnema/waycore/internal/resource"
	"github.com/bnema/waycore/internal/serial"
	"github.com/bnema/waycore/internal/xdg"
	"go.uber.org/atomic"
)

// Policy is the default shell handler. New popups get an initial configure,
// reposition requests are granted without constraint adjustment.
type Policy struct {
	grabLogging bool

	created   atomic.Int64
	grabs     atomic.Int64
	destroyed atomic.Int64
}

// NewPolicy creates the default policy handler.
func NewPolicy(grabLogging bool) *Policy {
	return &Policy{grabLogging: grabLogging}
}

// Created returns how many popups were created.
func (p *Policy) Created() int64 { return p.created.Load() }

// Grabs returns how many grab requests were seen.
func (p *Policy) Grabs() int64 { return p.grabs.Load() }

// Destroyed returns how many popups were destroyed.
func (p *Policy) Destroyed() int64 { return p.destroyed.Load() }

func (p *Policy) NewPopup(popup xdg.PopupSurface, positioner xdg.PositionerState) {
	p.created.Inc()
	if _, err := popup.SendPendingConfigure(); err != nil {
		logger.Warnf("Initial configure for %v failed: %v", popup.ShellSurface(), err)
	}
}

func (p *Policy) Grab(popup xdg.PopupSurface, seat *resource.Object, s serial.Serial) {
	p.grabs.Inc()
	if p.grabLogging {
		logger.Info("Popup grab", "popup", popup.ShellSurface(), "seat", seat, "serial", s)
		return
	}
	logger.Debug("Popup grab", "popup", popup.ShellSurface(), "seat", seat, "serial", s)
}

func (p *Policy) RepositionRequest(popup xdg.PopupSurface, positioner xdg.PositionerState, token uint32) {
	popup.WithPendingState(func(state *xdg.PopupState) {
		state.Positioner = positioner
		state.Geometry = positioner.Geometry()
	})
	if _, err := popup.SendRepositioned(token); err != nil {
		logger.Warnf("Reposition of %v failed: %v", popup.ShellSurface(), err)
	}
}

func (p *Policy) PopupDestroyed(popup xdg.PopupSurface) {
	p.destroyed.Inc()
	logger.Debug("Popup gone", "popup", popup.ShellSurface().ID())
}
