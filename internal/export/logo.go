package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const maxLogoBytes = 2 << 20

// FetchLogo loads src (an http(s) URL or a local path) and returns it as a
// data URI. Failures are returned as-is; callers decide whether to export
// without a logo.
func FetchLogo(ctx context.Context, client *http.Client, src string) (string, error) {
	if src == "" {
		return "", nil
	}
	if strings.HasPrefix(src, "data:") {
		return src, nil
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return fetchRemote(ctx, client, src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read logo: %w", err)
	}
	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(src)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return dataURI(ctype, data), nil
}

func fetchRemote(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch logo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch logo: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes))
	if err != nil {
		return "", fmt.Errorf("fetch logo: %w", err)
	}
	ctype := resp.Header.Get("Content-Type")
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return dataURI(ctype, data), nil
}

func dataURI(ctype string, data []byte) string {
	if i := strings.IndexByte(ctype, ';'); i >= 0 {
		ctype = ctype[:i]
	}
	return "data:" + strings.TrimSpace(ctype) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
