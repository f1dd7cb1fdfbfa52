package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/image/draw"
)

// ImageHandler proxies catalog posters, optionally downscaling them, and
// keeps the results on an afero filesystem.
type ImageHandler struct {
	fs           afero.Fs
	cacheDir     string
	allowedHosts map[string]bool
	httpc        *http.Client

	mu         sync.Mutex
	inProgress map[string]chan struct{}
}

// NewImageHandler creates the proxy. Only URLs on allowedHosts are fetched.
func NewImageHandler(fs afero.Fs, cacheDir string, httpc *http.Client, allowedHosts ...string) *ImageHandler {
	if err := fs.MkdirAll(cacheDir, 0o755); err != nil {
		log.Printf("[ImageProxy] Warning: could not create cache dir %s: %v", cacheDir, err)
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	hosts := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		hosts[strings.ToLower(h)] = true
	}
	return &ImageHandler{
		fs:           fs,
		cacheDir:     cacheDir,
		allowedHosts: hosts,
		httpc:        httpc,
		inProgress:   make(map[string]chan struct{}),
	}
}

// ProxyURL returns the proxied address for a source image.
func ProxyURL(source string, width int) string {
	v := url.Values{}
	v.Set("url", source)
	if width > 0 {
		v.Set("w", strconv.Itoa(width))
	}
	return "/api/image?" + v.Encode()
}

// Proxy handles image proxy requests
// Query params:
//   - url: source image URL (required)
//   - w: target width (optional, default: original)
//   - q: JPEG quality 1-100 (optional, default: 80)
func (h *ImageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		http.Error(w, "url parameter required", http.StatusBadRequest)
		return
	}
	parsed, err := url.Parse(sourceURL)
	if err != nil || parsed.Scheme != "https" || !h.allowedHosts[strings.ToLower(parsed.Hostname())] {
		http.Error(w, "URL not allowed", http.StatusForbidden)
		return
	}

	targetWidth := 0
	if wStr := r.URL.Query().Get("w"); wStr != "" {
		if v, err := strconv.Atoi(wStr); err == nil && v > 0 && v <= 2000 {
			targetWidth = v
		}
	}
	quality := 80
	if qStr := r.URL.Query().Get("q"); qStr != "" {
		if v, err := strconv.Atoi(qStr); err == nil && v >= 1 && v <= 100 {
			quality = v
		}
	}

	cachePath := path.Join(h.cacheDir, cacheKey(sourceURL, targetWidth, quality)+".jpg")
	if h.serveCached(w, cachePath) {
		return
	}

	h.mu.Lock()
	if ch, exists := h.inProgress[cachePath]; exists {
		h.mu.Unlock()
		select {
		case <-ch:
		case <-r.Context().Done():
			return
		}
		if h.serveCached(w, cachePath) {
			return
		}
		http.Error(w, "Failed to load image", http.StatusBadGateway)
		return
	}
	ch := make(chan struct{})
	h.inProgress[cachePath] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.inProgress, cachePath)
		close(ch)
		h.mu.Unlock()
	}()

	img, status, err := h.fetch(r, sourceURL)
	if err != nil {
		log.Printf("[ImageProxy] %s: %v", sourceURL, err)
		http.Error(w, "Failed to fetch image", status)
		return
	}
	img = downscale(img, targetWidth)

	if err := h.store(cachePath, img, quality); err != nil {
		log.Printf("[ImageProxy] Cache write error: %v", err)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("X-Cache", "MISS-NOCACHE")
		jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		return
	}
	if !h.serveCachedAs(w, cachePath, "MISS") {
		http.Error(w, "Failed to read cached image", http.StatusInternalServerError)
	}
}

func (h *ImageHandler) fetch(r *http.Request, sourceURL string) (image.Image, int, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	resp, err := h.httpc.Do(req)
	if err != nil {
		return nil, http.StatusBadGateway, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("source returned %d", resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, http.StatusBadGateway, fmt.Errorf("decode: %w", err)
	}
	return img, http.StatusOK, nil
}

// downscale shrinks img to width, keeping the aspect ratio. Larger targets
// leave the image untouched.
func downscale(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if width <= 0 || width >= bounds.Dx() {
		return img
	}
	height := int(float64(bounds.Dy()) * float64(width) / float64(bounds.Dx()))
	dst := image.NewRGBA(image.Rect(0, 0, width, max(height, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func (h *ImageHandler) store(cachePath string, img image.Image, quality int) error {
	tmpPath := cachePath + ".tmp"
	f, err := h.fs.Create(tmpPath)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		h.fs.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		h.fs.Remove(tmpPath)
		return err
	}
	if err := h.fs.Rename(tmpPath, cachePath); err != nil {
		h.fs.Remove(tmpPath)
		return err
	}
	return nil
}

func (h *ImageHandler) serveCached(w http.ResponseWriter, cachePath string) bool {
	return h.serveCachedAs(w, cachePath, "HIT")
}

func (h *ImageHandler) serveCachedAs(w http.ResponseWriter, cachePath, cacheState string) bool {
	data, err := afero.ReadFile(h.fs, cachePath)
	if err != nil {
		return false
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=2592000") // 30 days
	w.Header().Set("X-Cache", cacheState)
	w.Write(data)
	return true
}

// cacheKey generates a unique cache key for the image
func cacheKey(source string, width, quality int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", source, width, quality)))
	return hex.EncodeToString(hash[:16])
}

// CacheStats returns the number and total size of cached images.
func (h *ImageHandler) CacheStats() (count int, sizeBytes int64) {
	entries, err := afero.ReadDir(h.fs, h.cacheDir)
	if err != nil {
		return 0, 0
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jpg") {
			count++
			sizeBytes += entry.Size()
		}
	}
	return
}
