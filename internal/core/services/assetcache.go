package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/h2non/filetype"
)

// AssetCache is the keyword→assets download-marker set described for the
// Visual Timeline Builder (§4.6, §5): it remembers which StockClip IDs have
// already been fetched to a local file, and which clips have been marked
// used. The used set is never reset: a clip stays used for the lifetime of
// the cache, across every scene and job built against it. A clip that is
// already resolved is not fetched again; two ResolveLocal calls for the same
// clip that both miss the cache at the same time each fetch it.
type AssetCache struct {
	mu        sync.Mutex
	clipsDir  string
	byKeyword map[string][]StockClip
	localPath map[string]string // clip ID -> local file path
	used      map[string]bool   // clip ID -> consumed by any timeline built so far
}

func NewAssetCache(clipsDir string) *AssetCache {
	return &AssetCache{
		clipsDir:  clipsDir,
		byKeyword: make(map[string][]StockClip),
		localPath: make(map[string]string),
		used:      make(map[string]bool),
	}
}

// PutSearchResults records the candidates a pre-fetch search returned for
// keyword, keyed case-insensitively as §4.6 requires.
func (c *AssetCache) PutSearchResults(keyword string, clips []StockClip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKeyword[strings.ToLower(keyword)] = clips
}

// CandidatesFor returns the cached search results for keyword, or nil if
// nothing was pre-fetched for it.
func (c *AssetCache) CandidatesFor(keyword string) []StockClip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byKeyword[strings.ToLower(keyword)]
}

// AllCandidates returns every cached clip across every keyword, for the
// Layer 3 "scan entire database" fallback.
func (c *AssetCache) AllCandidates() []StockClip {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []StockClip
	for _, clips := range c.byKeyword {
		out = append(out, clips...)
	}
	return out
}

// UnusedCount reports how many distinct clip IDs have not yet been marked
// used, across every keyword — the total_unique_available of §4.6.
func (c *AssetCache) UnusedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool)
	for _, clips := range c.byKeyword {
		for _, clip := range clips {
			if !c.used[clip.ID] {
				seen[clip.ID] = true
			}
		}
	}
	return len(seen)
}

// IsUsed reports whether clipID has already been consumed by any timeline
// built against this cache.
func (c *AssetCache) IsUsed(clipID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used[clipID]
}

// MarkUsed records clipID as consumed.
func (c *AssetCache) MarkUsed(clipID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.used[clipID] = true
}

// ResolveLocal ensures clip has a local file under the asset cache's clips
// directory, fetching it through provider if it is not already present,
// then sniffing its real content type via filetype so the extension on
// disk matches what the renderer's demuxer expects.
func (c *AssetCache) ResolveLocal(ctx context.Context, provider StockProvider, clip StockClip) (string, error) {
	c.mu.Lock()
	if path, ok := c.localPath[clip.ID]; ok {
		c.mu.Unlock()
		return path, nil
	}
	c.mu.Unlock()

	tmpPath := filepath.Join(c.clipsDir, clip.ID+".download")
	if err := os.MkdirAll(c.clipsDir, 0o755); err != nil {
		return "", fmt.Errorf("create clips dir: %w", err)
	}
	if err := provider.Fetch(ctx, clip, tmpPath); err != nil {
		return "", fmt.Errorf("fetch clip %s: %w", clip.ID, err)
	}

	ext := sniffExtension(tmpPath)
	finalPath := filepath.Join(c.clipsDir, clip.ID+ext)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("rename clip %s into place: %w", clip.ID, err)
	}

	c.mu.Lock()
	c.localPath[clip.ID] = finalPath
	c.mu.Unlock()
	return finalPath, nil
}

// sniffExtension inspects the first bytes of path and returns the matching
// extension (".mp4", ".mov", ...), falling back to ".mp4" when filetype
// can't classify it — ffmpeg is picky about extensions on some inputs, so
// guessing wrong is worse than defaulting to the common case.
func sniffExtension(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ".mp4"
	}
	defer f.Close()

	head := make([]byte, 261)
	n, _ := f.Read(head)
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return ".mp4"
	}
	return "." + kind.Extension
}

func downloadToFile(ctx context.Context, client *http.Client, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

func copyFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open placeholder %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy placeholder to %s: %w", destPath, err)
	}
	return nil
}
