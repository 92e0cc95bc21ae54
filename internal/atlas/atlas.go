// Package atlas acquires parcellation atlas volumes. Schaefer-2018
// label images are fetched over HTTP into a local cache on first use;
// a configured local path bypasses the fetch entirely.
package atlas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/victoris93/neuroconn/internal/ctxlog"
)

// DefaultBaseURL serves the Schaefer-2018 parcellations from the CBIG
// repository, the same source nilearn fetches from.
const DefaultBaseURL = "https://raw.githubusercontent.com/ThomasYeoLab/CBIG/master/stable_projects/brain_parcellation/Schaefer2018_LocalGlobal/Parcellations/MNI"

// Fetcher downloads atlas volumes into a cache directory.
type Fetcher struct {
	BaseURL  string
	CacheDir string
	Client   *http.Client
}

// NewFetcher returns a Fetcher caching under dir. An empty dir defaults
// to ~/.cache/neuroconn.
func NewFetcher(dir string) *Fetcher {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, ".cache", "neuroconn")
		} else {
			dir = filepath.Join(os.TempDir(), "neuroconn")
		}
	}
	return &Fetcher{
		BaseURL:  DefaultBaseURL,
		CacheDir: dir,
		Client:   http.DefaultClient,
	}
}

// SchaeferName returns the file name of a Schaefer-2018 label volume in
// 1mm MNI space.
func SchaeferName(parcels, networks int) string {
	return fmt.Sprintf("Schaefer2018_%dParcels_%dNetworks_order_FSLMNI152_1mm.nii.gz", parcels, networks)
}

// Schaefer returns the local path of a Schaefer-2018 label volume,
// downloading it into the cache if it is not already there.
func (f *Fetcher) Schaefer(ctx context.Context, parcels, networks int) (string, error) {
	name := SchaeferName(parcels, networks)
	cached := filepath.Join(f.CacheDir, name)
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	url := f.BaseURL + "/" + name
	ctxlog.FromContext(ctx).Info("fetching atlas", "url", url)

	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating atlas cache: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetching atlas: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching atlas: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching atlas %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(f.CacheDir, name+".tmp*")
	if err != nil {
		return "", fmt.Errorf("caching atlas: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("caching atlas: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("caching atlas: %w", err)
	}
	if err := os.Rename(tmp.Name(), cached); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("caching atlas: %w", err)
	}
	return cached, nil
}
