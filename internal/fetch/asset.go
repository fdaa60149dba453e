package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

const maxAssetBytes = 10 << 20

type Asset struct {
	Data        []byte
	ContentType string
}

// FetchImage downloads an image (cover art) with the fetcher's identity.
// Non-image responses are rejected so a hotlink-protection page never
// lands in object storage as a cover.
func (f *HTTPFetcher) FetchImage(ctx context.Context, url, referer string) (Asset, error) {
	var asset Asset
	_, err := withRetry(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		a, err := f.image(ctx, url, referer)
		if err != nil {
			return nil, err
		}
		asset = a
		return a.Data, nil
	})
	return asset, err
}

func (f *HTTPFetcher) image(ctx context.Context, url, referer string) (Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Asset{}, fmt.Errorf("build request: %w", err)
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return Asset{}, transportError(url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusForbidden {
		return Asset{}, &Error{Kind: KindBlocked, URL: url, Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return Asset{}, &Error{Kind: KindHTTP, URL: url, Status: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); !strings.HasPrefix(mt, "image/") {
			return Asset{}, &Error{Kind: KindHTTP, URL: url, Status: resp.StatusCode,
				Err: fmt.Errorf("%w: %s", errNotImage, ct)}
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return Asset{}, transportError(url, err)
	}
	if ct == "" {
		ct = http.DetectContentType(data)
	}

	return Asset{Data: data, ContentType: ct}, nil
}

// ImageExt maps an image content type to a file extension.
func ImageExt(contentType string) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/avif":
		return ".avif"
	}
	return ".img"
}
