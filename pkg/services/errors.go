package services

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("the email or password provided is incorrect")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrInvalidMedia       = errors.New("invalid media upload")
)
