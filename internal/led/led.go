// Package led drives the status LED. The real implementation uses the
// Linux GPIO character device; the fake allows testing without hardware.
package led

// Blinker pulses the status indicator.
type Blinker interface {
	// Blink pulses the LED once to signal a recorded power-on.
	Blink() error

	// Close releases GPIO resources.
	Close() error
}

// NopBlinker satisfies Blinker when the LED is disabled in config.
type NopBlinker struct{}

func (NopBlinker) Blink() error { return nil }
func (NopBlinker) Close() error { return nil }
