package mqtt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bft-labs/seriallog/internal/ports"
)

// Controller is the command surface driven by the control topics.
type Controller interface {
	SetPaused(bool)
	Paused() bool
	SetExportEnabled(bool)
	ExportEnabled() bool
}

// Subscriber is the subscribing side of Client.
type Subscriber interface {
	Subscribe(topic string, handler MessageHandler) error
}

// SubscribeControl routes the pause and export control topics to ctrl.
func SubscribeControl(sub Subscriber, topics Topics, ctrl Controller, logger ports.Logger) error {
	err := sub.Subscribe(topics.ControlPaused(), func(_ string, payload []byte) error {
		v, err := parseCommand(payload, ctrl.Paused())
		if err != nil {
			return err
		}
		logger.Info("remote pause command", ports.Bool("paused", v))
		ctrl.SetPaused(v)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe pause control: %w", err)
	}

	err = sub.Subscribe(topics.ControlExport(), func(_ string, payload []byte) error {
		v, err := parseCommand(payload, ctrl.ExportEnabled())
		if err != nil {
			return err
		}
		logger.Info("remote export command", ports.Bool("export", v))
		ctrl.SetExportEnabled(v)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe export control: %w", err)
	}
	return nil
}

// parseCommand turns a control payload into the new flag value.
func parseCommand(payload []byte, current bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "true", "on", "1", "enable", "enabled":
		return true, nil
	case "false", "off", "0", "disable", "disabled":
		return false, nil
	case "toggle":
		return !current, nil
	default:
		return current, errors.Join(ErrInvalidCommand, fmt.Errorf("payload %q", payload))
	}
}
