package onvif

import "sync"

// MediaURLCache maps device service URLs to media service URLs
type MediaURLCache struct {
	mu   sync.RWMutex
	urls map[string]string
}

// NewMediaURLCache creates an empty cache
func NewMediaURLCache() *MediaURLCache {
	return &MediaURLCache{urls: map[string]string{}}
}

func (c *MediaURLCache) Get(deviceURL string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.urls[deviceURL]
	return u, ok
}

func (c *MediaURLCache) Put(deviceURL, mediaURL string) {
	c.mu.Lock()
	if c.urls == nil {
		c.urls = map[string]string{}
	}
	c.urls[deviceURL] = mediaURL
	c.mu.Unlock()
}

func (c *MediaURLCache) Delete(deviceURL string) {
	c.mu.Lock()
	delete(c.urls, deviceURL)
	c.mu.Unlock()
}

func (c *MediaURLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.urls)
}
