package clock

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/mutker/powermon/internal/errors"
)

// HTTPFeed reads wall-clock time from the Date header of an HTTP
// response. Any well-run origin serves one, which keeps the device free
// of NTP infrastructure; deployments with an NTP source substitute their
// own TimeFeed.
type HTTPFeed struct {
	url    string
	client *http.Client
}

func NewHTTPFeed(url string, timeout time.Duration) *HTTPFeed {
	return &HTTPFeed{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFeed) Fetch(ctx context.Context) (time.Time, error) {
	errFactory := errors.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.url, nil)
	if err != nil {
		return time.Time{}, errFactory.Wrap(errors.ErrTimeSyncFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return time.Time{}, errFactory.Wrap(errors.ErrTimeSyncFailed, err)
	}
	defer resp.Body.Close()

	date := resp.Header.Get("Date")
	if date == "" {
		return time.Time{}, errFactory.WithMessage(errors.ErrTimeSyncFailed, "response carries no Date header")
	}

	now, err := http.ParseTime(date)
	if err != nil {
		return time.Time{}, errFactory.Wrap(errors.ErrTimeSyncFailed, err)
	}

	return now, nil
}
