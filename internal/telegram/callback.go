package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	actionOpen    = "remind_open"
	actionAck     = "remind_ack"
	actionDismiss = "remind_dismiss"
	actionSnooze  = "remind_snooze"
)

// callback is a parsed inline keyboard payload. Ref is the notification tag
// for open and the delivery id otherwise.
type callback struct {
	Action  string
	Ref     string
	Minutes int
}

func openData(tag string) string           { return actionOpen + ":" + tag }
func ackData(deliveryID string) string     { return actionAck + ":" + deliveryID }
func dismissData(deliveryID string) string { return actionDismiss + ":" + deliveryID }

func snoozeData(deliveryID string, minutes int) string {
	return fmt.Sprintf("%s:%s:%d", actionSnooze, deliveryID, minutes)
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[1] == "" {
		return callback{}, fmt.Errorf("invalid callback data %q", data)
	}

	cb := callback{Action: parts[0], Ref: parts[1]}
	switch cb.Action {
	case actionOpen, actionAck, actionDismiss:
		if len(parts) != 2 {
			return callback{}, fmt.Errorf("invalid callback data %q", data)
		}
	case actionSnooze:
		if len(parts) != 3 {
			return callback{}, fmt.Errorf("invalid callback data %q", data)
		}
		minutes, err := strconv.Atoi(parts[2])
		if err != nil {
			return callback{}, fmt.Errorf("invalid snooze minutes %q", parts[2])
		}
		cb.Minutes = minutes
	default:
		return callback{}, fmt.Errorf("unknown callback action %q", cb.Action)
	}
	return cb, nil
}
