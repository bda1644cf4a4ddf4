package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Artwork downloads a thumbnail blob. Callers treat a
// failure here as cosmetic, never as an item failure.
func (YouTubeDL) Artwork(ctx context.Context, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDownload, err)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDownload, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: artwork fetch returned %s", ErrDownload, response.Status)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDownload, err)
	}
	return data, nil
}
