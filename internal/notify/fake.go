package notify

// FakePublisher records published events for tests.
type FakePublisher struct {
	Restores []RestoreEvent
	Closed   bool

	// PublishError, if set, is returned by PublishRestore.
	PublishError error
}

func (f *FakePublisher) PublishRestore(event RestoreEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Restores = append(f.Restores, event)

	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true

	return nil
}
