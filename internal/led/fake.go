package led

// FakeBlinker is a test double that counts pulses.
type FakeBlinker struct {
	Blinks int
	Closed bool

	// BlinkError, if set, is returned by Blink.
	BlinkError error
}

func (f *FakeBlinker) Blink() error {
	if f.BlinkError != nil {
		return f.BlinkError
	}
	f.Blinks++

	return nil
}

func (f *FakeBlinker) Close() error {
	f.Closed = true

	return nil
}
