// Package media downloads listing photos into a per-job scratch
// directory before they are re-uploaded to the destination form.
package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"evler_migrator/httputil"
)

const maxPhotoBytes = 50 * 1024 * 1024

// Downloader fetches photos over plain HTTP. Watermark-free variants
// are requested by rewriting the gallery path before download.
type Downloader struct {
	client *http.Client
}

func NewDownloader() *Downloader {
	return &Downloader{
		client: httputil.NewMediaClient(),
	}
}

// Result reports one batch download.
type Result struct {
	Total      int
	Downloaded int
	Files      []string
}

// CleanURL rewrites a watermarked gallery URL to its clean variant.
func CleanURL(url string) string {
	return strings.Replace(url, "/property_wm/", "/property_thumb/", 1)
}

// DownloadAll fetches up to maxPhotos of the given URLs into dir.
// Individual failures are logged and skipped; a negative cap means all.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string, dir string, maxPhotos int) (Result, error) {
	res := Result{Total: len(urls)}
	if len(urls) == 0 || maxPhotos == 0 {
		return res, nil
	}
	if maxPhotos > 0 && maxPhotos < len(urls) {
		urls = urls[:maxPhotos]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create photo dir: %w", err)
	}
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		url = CleanURL(url)
		dest := filepath.Join(dir, fmt.Sprintf("photo_%02d%s", i+1, extensionFor(url, "")))
		final, err := d.downloadOne(ctx, url, dest)
		if err != nil {
			log.Printf("media: photo %d/%d failed: %v", i+1, len(urls), err)
			continue
		}
		res.Downloaded++
		res.Files = append(res.Files, final)
	}
	return res, nil
}

func (d *Downloader) downloadOne(ctx context.Context, url, dest string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status: %d", resp.StatusCode)
	}

	// The URL extension can lie; trust the response when it speaks.
	if ext := extensionFor(url, resp.Header.Get("Content-Type")); ext != filepath.Ext(dest) {
		dest = strings.TrimSuffix(dest, filepath.Ext(dest)) + ext
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxPhotoBytes)); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write file: %w", err)
	}
	return dest, nil
}

func extensionFor(url, contentType string) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			switch mt {
			case "image/png":
				return ".png"
			case "image/webp":
				return ".webp"
			case "image/jpeg":
				return ".jpg"
			}
		}
	}
	ext := strings.ToLower(path.Ext(strings.SplitN(path.Base(url), "?", 2)[0]))
	switch ext {
	case ".png", ".webp", ".jpeg", ".jpg":
		if ext == ".jpeg" {
			return ".jpg"
		}
		return ext
	}
	return ".jpg"
}
