package core

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrItemNotFound      = errors.New("order item not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrValidation        = errors.New("invalid request")

	ErrDBConn  = errors.New("db connection failure")
	ErrRMQConn = errors.New("rabbitmq connection failure")

	ErrNoDeviceToken = errors.New("no device token registered")
)
