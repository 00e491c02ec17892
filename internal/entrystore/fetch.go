// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package entrystore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdiddy/etymgraph/internal/httputil"
	"github.com/pdiddy/etymgraph/pkg/types"
)

// FetchDump downloads a JSONL entry dump from url to dest, retrying on 429
// and 503. The file is written next to dest and renamed into place once
// complete, so an interrupted download never leaves a partial dump.
func FetchDump(ctx context.Context, cfg types.HTTPConfig, url, dest string) (int64, error) {
	// Dumps are large; only the wait for response headers is bounded.
	client := &http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: cfg.Timeout,
	}}
	resp, err := httputil.Get(ctx, client, url, cfg.UserAgent, cfg.MaxRetries)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", tmp, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return 0, fmt.Errorf("moving dump into place: %w", err)
	}
	return n, nil
}
