package registry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/rios0rios0/autorelease/internal/domain/entities"
	"github.com/rios0rios0/autorelease/internal/domain/repositories"
)

const (
	requestTimeout  = 30 * time.Second
	retryMax        = 3
	extractDirMode  = 0o755
	extractFileMode = 0o644
)

// snapshotResponse mirrors the registry's latest-version metadata document.
type snapshotResponse struct {
	Version           string            `json:"version"`
	PublishedAtCommit string            `json:"published_at_commit"`
	Files             map[string]string `json:"files"`
	Dependencies      map[string]string `json:"dependencies"`
	Locked            map[string]string `json:"locked"`
}

// HTTPRegistryRepository resolves published snapshots from the package
// registry's HTTP API.
type HTTPRegistryRepository struct {
	baseURL string
	token   string
	client  *retryablehttp.Client
}

// NewHTTPRegistryRepository creates a registry resolver for the configured
// endpoint. An empty URL yields a resolver that reports nothing published.
func NewHTTPRegistryRepository(
	settings entities.RegistrySettings,
) repositories.RegistryArtifactRepository {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = requestTimeout
	client.Logger = nil

	return &HTTPRegistryRepository{
		baseURL: strings.TrimSuffix(settings.URL, "/"),
		token:   settings.Token,
		client:  client,
	}
}

// Configured reports whether a registry endpoint is set.
func (r *HTTPRegistryRepository) Configured() bool {
	return r.baseURL != ""
}

// LatestPublished fetches the newest published snapshot of the package,
// nil when the registry has never seen it.
func (r *HTTPRegistryRepository) LatestPublished(
	ctx context.Context,
	pkg *entities.Package,
) (*entities.PublishedSnapshot, error) {
	if !r.Configured() {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/v1/packages/%s/latest", r.baseURL, url.PathEscape(pkg.Name))
	resp, err := r.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to query the registry for %q: %w", pkg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // never published
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"unexpected status code from the registry for %q: %d", pkg.Name, resp.StatusCode,
		)
	}

	var payload snapshotResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil {
		return nil, fmt.Errorf("failed to parse registry metadata for %q: %w", pkg.Name, decodeErr)
	}

	version, parseErr := semver.NewVersion(payload.Version)
	if parseErr != nil {
		return nil, fmt.Errorf(
			"registry reports version %q for %q, which is not semantic: %w",
			payload.Version, pkg.Name, parseErr,
		)
	}

	return &entities.PublishedSnapshot{
		Source:            entities.SnapshotFromRegistry,
		Version:           version,
		Files:             payload.Files,
		PublishedAtCommit: payload.PublishedAtCommit,
		Dependencies:      payload.Dependencies,
		Locked:            payload.Locked,
	}, nil
}

// Materialize downloads the snapshot's archive and extracts it into a fresh
// temporary directory. The caller removes the directory.
func (r *HTTPRegistryRepository) Materialize(
	ctx context.Context,
	pkg *entities.Package,
	snapshot *entities.PublishedSnapshot,
) (string, error) {
	endpoint := fmt.Sprintf(
		"%s/v1/packages/%s/%s/archive",
		r.baseURL, url.PathEscape(pkg.Name), url.PathEscape(snapshot.Version.String()),
	)
	resp, err := r.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to download %q %s: %w", pkg.Name, snapshot.Version, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"unexpected status code downloading %q %s: %d",
			pkg.Name, snapshot.Version, resp.StatusCode,
		)
	}

	dir, err := os.MkdirTemp("", "autorelease-"+pkg.Name+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}

	if extractErr := extractArchive(dir, resp.Body); extractErr != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("failed to extract %q %s: %w", pkg.Name, snapshot.Version, extractErr)
	}
	return dir, nil
}

func (r *HTTPRegistryRepository) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	return r.client.Do(req)
}

// extractArchive writes a tar.gz stream into dir, rejecting entries that
// would escape it.
func extractArchive(dir string, body io.Reader) error {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer gz.Close()

	reader := tar.NewReader(gz)
	for {
		header, nextErr := reader.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return fmt.Errorf("failed to read archive: %w", nextErr)
		}

		target, ok := safeJoin(dir, header.Name)
		if !ok {
			return fmt.Errorf("archive entry %q escapes the target directory", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if mkErr := os.MkdirAll(target, extractDirMode); mkErr != nil {
				return mkErr
			}
		case tar.TypeReg:
			if writeErr := writeEntry(target, reader); writeErr != nil {
				return writeErr
			}
		default:
			// Snapshots carry regular files only; anything else is dropped.
		}
	}
	return nil
}

func writeEntry(target string, reader io.Reader) error {
	if mkErr := os.MkdirAll(filepath.Dir(target), extractDirMode); mkErr != nil {
		return mkErr
	}

	out, openErr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, extractFileMode)
	if openErr != nil {
		return openErr
	}
	defer out.Close()

	if _, copyErr := io.Copy(out, reader); copyErr != nil {
		return copyErr
	}
	return nil
}

func safeJoin(dir, name string) (string, bool) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(dir, cleaned), true
}
