package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxPhotoSize = 10 << 20 // 10 MB

var photoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// loadPhoto resolves a data URI or an http(s) URL into image bytes.
func loadPhoto(ctx context.Context, raw string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(raw, "data:") {
		data, err = decodeDataURI(raw)
	} else {
		data, err = fetchPhoto(ctx, raw)
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("photo is empty")
	}
	if len(data) > maxPhotoSize {
		return nil, fmt.Errorf("photo too large: %d bytes (max %d)", len(data), maxPhotoSize)
	}
	if detected := http.DetectContentType(data); !photoTypes[detected] {
		return nil, fmt.Errorf("photo content is %s, want png, jpeg, gif or webp", detected)
	}
	return data, nil
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	if mime := strings.TrimSuffix(meta, ";base64"); mime != "" && !photoTypes[mime] {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}

// fetchPhoto downloads a photo, refusing loopback and cloud metadata hosts.
func fetchPhoto(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %q (only data, http, https)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	return data, nil
}

func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ips = resolved
	}

	for _, ip := range ips {
		switch {
		case ip.IsLoopback():
			return fmt.Errorf("blocked host: loopback address %s", host)
		case ip.Equal(net.ParseIP("169.254.169.254")):
			return fmt.Errorf("blocked host: cloud metadata address %s", host)
		case ip.IsPrivate(), ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsUnspecified():
			return fmt.Errorf("blocked host: non-public address %s", host)
		}
	}
	return nil
}
