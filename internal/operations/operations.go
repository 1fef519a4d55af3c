// Package operations holds the session state machine as data. It performs no
// I/O; the orchestrator asks it whether an event is legal and what state follows.
package operations

import (
	"errors"
	"fmt"

	"bankops/pkg/model"
)

type Event string

const (
	EventAssignDevice Event = "assign_device"
	EventVerifyCard   Event = "verify_card"
	EventCardRejected Event = "card_rejected"
	EventVerifyPin    Event = "verify_pin"
	EventEnterAmount  Event = "enter_amount"
	EventSubmit       Event = "submit"
	EventSucceed      Event = "succeed"
	EventFail         Event = "fail"
	EventHold         Event = "hold"
	EventConfirm      Event = "confirm"
	EventRelease      Event = "release"
	EventCancel       Event = "cancel"
)

var ErrInvalidTransition = errors.New("invalid state transition")

type TransitionError struct {
	Channel model.Channel
	From    model.SessionState
	Event   Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s is not allowed in state %s", e.Channel, e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type edge struct {
	from  model.SessionState
	event Event
}

type table map[edge]model.SessionState

var atmTable = table{
	{model.StateIdle, EventAssignDevice}:           model.StateDeviceAssigned,
	{model.StateDeviceAssigned, EventVerifyCard}:   model.StateCardVerified,
	{model.StateDeviceAssigned, EventCardRejected}: model.StateIdle,
	{model.StateCardVerified, EventVerifyPin}:      model.StatePinVerified,
	{model.StatePinVerified, EventEnterAmount}:     model.StateAmountEntered,
	{model.StateAmountEntered, EventEnterAmount}:   model.StateAmountEntered,
	{model.StateFailure, EventEnterAmount}:         model.StateAmountEntered,
	{model.StateAmountEntered, EventSubmit}:        model.StateSubmitted,
	{model.StateSubmitted, EventSucceed}:           model.StateSuccess,
	{model.StateSubmitted, EventFail}:              model.StateFailure,
	{model.StateSubmitted, EventHold}:              model.StatePendingReview,
	{model.StateSuccess, EventConfirm}:             model.StateConfirmed,
	{model.StateFailure, EventConfirm}:             model.StateConfirmed,
	{model.StateConfirmed, EventRelease}:           model.StateReleased,
	{model.StateSuccess, EventRelease}:             model.StateReleased,
	{model.StateFailure, EventRelease}:             model.StateReleased,
	{model.StatePendingReview, EventRelease}:       model.StateReleased,
}

// Transfers have no device, card or print step.
var transferTable = table{
	{model.StateIdle, EventEnterAmount}:          model.StateAmountEntered,
	{model.StateAmountEntered, EventEnterAmount}: model.StateAmountEntered,
	{model.StateAmountEntered, EventSubmit}:      model.StateSubmitted,
	{model.StateSubmitted, EventSucceed}:         model.StateSuccess,
	{model.StateSubmitted, EventFail}:            model.StateFailure,
	{model.StateSubmitted, EventHold}:            model.StatePendingReview,
	{model.StateSuccess, EventRelease}:           model.StateReleased,
	{model.StateFailure, EventRelease}:           model.StateReleased,
	{model.StatePendingReview, EventRelease}:     model.StateReleased,
}

var tables = map[model.Channel]table{
	model.ChannelATM:      atmTable,
	model.ChannelTransfer: transferTable,
}

// Next returns the state that follows event, or a *TransitionError.
// Cancel is legal from every state of a known channel that has no outcome yet.
// Sessions with an outcome leave through release.
func Next(channel model.Channel, from model.SessionState, event Event) (model.SessionState, error) {
	t, ok := tables[channel]
	if !ok {
		return from, &TransitionError{Channel: channel, From: from, Event: event}
	}

	if event == EventCancel {
		if from == model.StateReleased || from == model.StateCancelled || Settled(from) {
			return from, &TransitionError{Channel: channel, From: from, Event: event}
		}
		return model.StateCancelled, nil
	}

	to, ok := t[edge{from: from, event: event}]
	if !ok {
		return from, &TransitionError{Channel: channel, From: from, Event: event}
	}
	return to, nil
}

func Allowed(channel model.Channel, from model.SessionState, event Event) bool {
	_, err := Next(channel, from, event)
	return err == nil
}

var eventOrder = []Event{
	EventAssignDevice, EventVerifyCard, EventCardRejected, EventVerifyPin, EventEnterAmount,
	EventSubmit, EventSucceed, EventFail, EventHold, EventConfirm, EventRelease, EventCancel,
}

// Events lists the legal events from a state in a stable order.
func Events(channel model.Channel, from model.SessionState) []Event {
	var out []Event
	for _, e := range eventOrder {
		if Allowed(channel, from, e) {
			out = append(out, e)
		}
	}
	return out
}

// Settled reports whether the session's submit already produced an outcome.
func Settled(state model.SessionState) bool {
	switch state {
	case model.StateSuccess, model.StateFailure, model.StatePendingReview, model.StateConfirmed:
		return true
	}
	return false
}
