//go:build !linux

package led

import "codeberg.org/mutker/powermon/internal/errors"

// RealBlinker is unavailable off-Linux; builds succeed but construction
// fails at runtime.
type RealBlinker struct{}

func NewRealBlinker(_ string, _ int) (*RealBlinker, error) {
	return nil, errors.New().WithMessage(errors.ErrUnavailable, "GPIO requires linux")
}

func (*RealBlinker) Blink() error { return nil }
func (*RealBlinker) Close() error { return nil }
