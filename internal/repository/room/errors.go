package room

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageExists   = errors.New("message already exists")
	ErrInvalidPatch    = errors.New("invalid patch")
	ErrTxRetriesExceed = errors.New("transaction retries exceeded")
)
