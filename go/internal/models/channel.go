package models

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrChannelNotNumber is returned when the channel input is not an integer.
	ErrChannelNotNumber = errors.New("channel must be a number")
	// ErrChannelOutOfRange is returned when the channel is outside 1..50.
	ErrChannelOutOfRange = errors.New("channel must be between 1 and 50")
)

// ParseChannel parses user input into a channel number.
func ParseChannel(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrChannelNotNumber
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrChannelNotNumber
	}
	if err := ValidateChannel(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ValidateChannel checks that n is a valid channel number.
func ValidateChannel(n int) error {
	if n < MinChannel || n > MaxChannel {
		return ErrChannelOutOfRange
	}
	return nil
}
