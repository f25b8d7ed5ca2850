package onvif

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMediaURLCache(t *testing.T) {
	c := NewMediaURLCache()

	_, ok := c.Get("http://10.0.0.7/onvif/device_service")
	require.False(t, ok)

	c.Put("http://10.0.0.7/onvif/device_service", "http://10.0.0.7/onvif/Media")
	u, ok := c.Get("http://10.0.0.7/onvif/device_service")
	require.True(t, ok)
	require.Equal(t, "http://10.0.0.7/onvif/Media", u)
	require.Equal(t, 1, c.Len())

	c.Delete("http://10.0.0.7/onvif/device_service")
	require.Equal(t, 0, c.Len())

	var zero MediaURLCache
	zero.Put("a", "b")
	u, ok = zero.Get("a")
	require.True(t, ok)
	require.Equal(t, "b", u)
}

func TestMediaURLCacheConcurrent(t *testing.T) {
	c := NewMediaURLCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("http://10.0.%d.%d/onvif/device_service", i, j)
				c.Put(key, "media")
				_, _ = c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1600, c.Len())
}
