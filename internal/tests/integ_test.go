package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iTrooz/ardemo/internal/cache"
	"github.com/iTrooz/ardemo/internal/config"
	"github.com/iTrooz/ardemo/internal/urlcache"
)

type mugResponse struct {
	Demo string `json:"demo"`
	Mug  struct {
		Materials struct {
			RenditionPath string   `json:"renditionPath"`
			DecalPath     string   `json:"decalPath"`
			TextMeshes    []string `json:"textMeshes"`
			Price         string   `json:"price"`
		} `json:"materials"`
	} `json:"mug"`
}

func mugLink(upstreamURL string) string {
	return "com.oracle.ios.ardemo://mug?url=" + url.QueryEscape(upstreamURL) +
		"&token=" + channelToken + "&assetID=CORE456&imageID=CONT789&mugColor=0x123123&textColor=0x050505&customText=Hi"
}

func postOpen(t *testing.T, launcherURL, link string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"url": link})
	resp, err := http.Post(launcherURL+"/open", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func TestLauncherIntegration(t *testing.T) {
	// Create a test upstream delivery API and a forward proxy in front of it
	upstream := fixture_upstream()
	defer upstream.Close()
	proxy := fixture_proxy()
	defer proxy.Close()

	// Create temporary directory for cache
	tempDir := t.TempDir()

	cfg := fixture_config(tempDir, nil, proxy.URL)

	launcher, fc, err := fixture_server(cfg)
	if err != nil {
		t.Fatalf("Failed to create launcher: %v", err)
	}
	defer launcher.Close()

	link := mugLink(upstream.URL)
	var first mugResponse

	t.Run("first open - cache miss", func(t *testing.T) {
		resp := postOpen(t, launcher.URL, link)
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
		}
		if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if first.Mug.Materials.Price != "15.0" {
			t.Errorf("Expected price 15.0, got %q", first.Mug.Materials.Price)
		}
		if len(first.Mug.Materials.TextMeshes) != 1 || first.Mug.Materials.TextMeshes[0] != "Text" {
			t.Errorf("Unexpected text meshes: %v", first.Mug.Materials.TextMeshes)
		}
		if upstream.Downloads("USDZ1") != 1 || upstream.Downloads("CONT789") != 1 {
			t.Errorf("Expected one download of each file, got %d and %d", upstream.Downloads("USDZ1"), upstream.Downloads("CONT789"))
		}
	})

	t.Run("second open - revalidated from cache", func(t *testing.T) {
		resp := postOpen(t, launcher.URL, link)
		defer func() { _ = resp.Body.Close() }()

		var second mugResponse
		if err := json.NewDecoder(resp.Body).Decode(&second); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		if second.Mug.Materials.RenditionPath != first.Mug.Materials.RenditionPath {
			t.Errorf("Expected cached rendition %s, got %s", first.Mug.Materials.RenditionPath, second.Mug.Materials.RenditionPath)
		}
		if upstream.NotModified("USDZ1") != 1 || upstream.NotModified("CONT789") != 1 {
			t.Errorf("Expected a 304 for each file")
		}
		if upstream.Downloads("USDZ1") != 1 {
			t.Errorf("Rendition should not be downloaded again")
		}
	})

	t.Run("requests went through the proxy", func(t *testing.T) {
		// 2 asset reads + 4 native downloads
		if got := proxy.requests.Load(); got != 6 {
			t.Errorf("Expected 6 proxied requests, got %d", got)
		}
	})

	t.Run("verify cache files exist", func(t *testing.T) {
		blobDir := filepath.Join(tempDir, cache.BlobDirName)
		for _, path := range []string{first.Mug.Materials.RenditionPath, first.Mug.Materials.DecalPath} {
			if filepath.Dir(path) != blobDir {
				t.Errorf("Expected %s inside %s", path, blobDir)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("Cache file should exist at %s", path)
			}
		}
		if fc.Len() != 2 {
			t.Errorf("Expected 2 cache entries, got %d", fc.Len())
		}
	})

	t.Run("verify recent list file", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(tempDir, urlcache.FileName("mug")))
		if err != nil {
			t.Fatalf("Recent list should be persisted: %v", err)
		}
		var links []string
		if err := json.Unmarshal(data, &links); err != nil {
			t.Fatalf("Recent list is not a JSON array: %v", err)
		}
		if len(links) != 1 || links[0] != link {
			t.Errorf("Expected [%s], got %v", link, links)
		}
	})
}

func TestLauncherIntegrationWithCustomRules(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	tempDir := t.TempDir()

	// Blacklist the upstream itself
	customRules := &config.RulesConfig{
		Mode: "blacklist",
		Rules: []config.ServerRule{
			{BaseURI: upstream.URL},
		},
	}
	cfg := fixture_config(tempDir, customRules, "")

	launcher, _, err := fixture_server(cfg)
	if err != nil {
		t.Fatalf("Failed to create launcher: %v", err)
	}
	defer launcher.Close()

	t.Run("blacklisted server is refused", func(t *testing.T) {
		resp := postOpen(t, launcher.URL, mugLink(upstream.URL))
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected status 403, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "not allowed") {
			t.Errorf("Unexpected response body: %s", string(body))
		}
		if upstream.Downloads("CONT789") != 0 {
			t.Errorf("Upstream should not be contacted")
		}
	})

	t.Run("refused link is still remembered", func(t *testing.T) {
		resp, err := http.Get(launcher.URL + "/recent/mug")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()

		var links []string
		if err := json.NewDecoder(resp.Body).Decode(&links); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(links) != 1 {
			t.Errorf("Expected 1 recent link, got %v", links)
		}
	})
}

func TestLauncherIntegrationSurvivesRestart(t *testing.T) {
	upstream := fixture_upstream()
	defer upstream.Close()

	tempDir := t.TempDir()
	cfg := fixture_config(tempDir, nil, "")
	link := mugLink(upstream.URL)

	for i := 0; i < 2; i++ {
		launcher, _, err := fixture_server(cfg)
		if err != nil {
			t.Fatalf("Failed to create launcher: %v", err)
		}
		resp := postOpen(t, launcher.URL, link)
		_ = resp.Body.Close()
		launcher.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Run %d: expected status 200, got %d", i, resp.StatusCode)
		}
	}

	if upstream.Downloads("USDZ1") != 1 {
		t.Errorf("Expected a single download across restarts, got %d", upstream.Downloads("USDZ1"))
	}
	if upstream.NotModified("USDZ1") != 1 {
		t.Errorf("Expected the restarted launcher to revalidate, got %d", upstream.NotModified("USDZ1"))
	}
}
