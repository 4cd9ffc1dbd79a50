package services

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNameTaken    = errors.New("name already taken")
	ErrSelfFollow   = errors.New("cannot follow yourself")
	ErrProfileTaken = errors.New("profile already exists")
)
