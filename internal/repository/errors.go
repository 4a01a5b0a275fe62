package repository

import "errors"

var (
	ErrNotFound       = errors.New("repository: record not found")
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

var (
	ErrRoomNotFound = ErrNotFound
	ErrSeatNotFound = ErrNotFound
	ErrTeamNotFound = ErrNotFound
	ErrUserNotFound = ErrNotFound
)
