package notify

import (
	"context"
	"errors"
	"fmt"

	"canteen-backend/internal/notify/push"
)

// RoomEmitter is the live transport surface the hub sink needs: per-room
// addressing plus a broadcast to every connected observer.
type RoomEmitter interface {
	EmitToGroup(key, event string, payload any) error
	EmitToAll(event string, payload any) error
}

// HubSink delivers events over the websocket hub. The owner gets the full
// order document; the broadcast carries the admin view.
type HubSink struct {
	Hub RoomEmitter
}

func (s *HubSink) Name() string { return "hub" }

func (s *HubSink) Deliver(ctx context.Context, evt Event) error {
	var errs []error
	if evt.OwnerEvent != "" {
		if err := s.Hub.EmitToGroup(evt.Order.Email, evt.OwnerEvent, evt.Order); err != nil {
			errs = append(errs, fmt.Errorf("owner channel: %w", err))
		}
	}
	if evt.AdminEvent != "" {
		if err := s.Hub.EmitToAll(evt.AdminEvent, evt.Order.AdminView()); err != nil {
			errs = append(errs, fmt.Errorf("admin channel: %w", err))
		}
	}
	return errors.Join(errs...)
}

// DeviceTokenResolver looks up the push token registered for a user.
type DeviceTokenResolver interface {
	DeviceToken(ctx context.Context, email string) (string, error)
}

// PushSink delivers events through the device-token push channel.
type PushSink struct {
	Client *push.Client
	Tokens DeviceTokenResolver
}

func (s *PushSink) Name() string { return "push" }

func (s *PushSink) Deliver(ctx context.Context, evt Event) error {
	if evt.PushTitle == "" {
		return nil
	}
	token, err := s.Tokens.DeviceToken(ctx, evt.Order.Email)
	if err != nil {
		return fmt.Errorf("resolve device token for %s: %w", evt.Order.Email, err)
	}
	if token == "" {
		return fmt.Errorf("no device token registered for %s", evt.Order.Email)
	}
	return s.Client.Send(ctx, token, evt.PushTitle, evt.PushBody)
}
