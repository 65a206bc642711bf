package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrMenuItemIncomplete = errors.New("name, price and category are required")
)
