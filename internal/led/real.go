//go:build linux

package led

import (
	"time"

	"codeberg.org/mutker/powermon/internal/errors"
	"github.com/warthog618/go-gpiocdev"
)

const pulseLength = 100 * time.Millisecond

// RealBlinker drives an LED line on actual hardware.
type RealBlinker struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealBlinker requests the given pin as an output, initially high
// (LED steady on, matching the device's idle indication).
func NewRealBlinker(chipName string, pin int) (*RealBlinker, error) {
	errFactory := errors.New()

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(1))
	if err != nil {
		chip.Close()
		return nil, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	return &RealBlinker{chip: chip, line: line}, nil
}

// Blink pulses the line low then back high.
func (b *RealBlinker) Blink() error {
	errFactory := errors.New()

	if err := b.line.SetValue(0); err != nil {
		return errFactory.Wrap(errors.ErrOperationFailed, err)
	}
	time.Sleep(pulseLength)
	if err := b.line.SetValue(1); err != nil {
		return errFactory.Wrap(errors.ErrOperationFailed, err)
	}

	return nil
}

func (b *RealBlinker) Close() error {
	var firstErr error
	if b.line != nil {
		if err := b.line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
