// Package hub resolves model artifacts published on a Hugging Face style hub.
//
// Files are downloaded once into a content-addressed cache laid out like the
// upstream client:
//
//	<cache>/models--<org>--<name>/blobs/<sha256>
//	<cache>/models--<org>--<name>/snapshots/<revision>/<filename>
//
// A snapshot entry that already exists is used without touching the network.
// When the hub cannot be reached the artifact's local fallback path is used.
package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dudu/facescore/internal/logging"
)

// ErrNotResolved is returned when neither the hub nor the fallback path
// produced a readable file.
var ErrNotResolved = errors.New("model artifact not resolved")

// ErrNotPublished is returned when the hub answers 404 for a file, usually
// because the repository does not publish that format.
var ErrNotPublished = errors.New("file not published in repository")

// Artifact identifies one file in a hub repository.
type Artifact struct {
	Repo     string // "org/name"; empty means local only
	Filename string
	Revision string
	Fallback string // local path tried when the hub fails
}

// Options configures a Resolver.
type Options struct {
	Endpoint string
	CacheDir string
	Offline  bool
	Timeout  time.Duration
	Client   *http.Client
	Logger   *zap.Logger
}

// Resolver maps artifacts to local file paths.
type Resolver struct {
	endpoint string
	cacheDir string
	offline  bool
	client   *http.Client
	log      *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(opts Options) *Resolver {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Resolver{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		cacheDir: opts.CacheDir,
		offline:  opts.Offline,
		client:   client,
		log:      logging.OrNop(opts.Logger),
	}
}

// Resolve returns a local path for the artifact. The hub is tried first
// (cache, then download); on failure the fallback path is used if it exists.
func (r *Resolver) Resolve(ctx context.Context, a Artifact) (string, error) {
	var hubErr error
	if a.Repo != "" {
		path, err := r.fromHub(ctx, a)
		if err == nil {
			return path, nil
		}
		hubErr = err
		r.log.Warn("hub resolution failed, trying local fallback",
			zap.String("repo", a.Repo),
			zap.String("filename", a.Filename),
			zap.String("fallback", a.Fallback),
			zap.Error(err))
	}

	if a.Fallback == "" {
		return "", errors.Join(ErrNotResolved, hubErr)
	}
	info, err := os.Stat(a.Fallback)
	if err != nil {
		return "", errors.Join(ErrNotResolved, hubErr, fmt.Errorf("fallback %s: %w", a.Fallback, err))
	}
	if info.IsDir() {
		return "", errors.Join(ErrNotResolved, hubErr, fmt.Errorf("fallback %s is a directory", a.Fallback))
	}
	return a.Fallback, nil
}

// SnapshotPath returns where the artifact lives in the cache once fetched.
func (r *Resolver) SnapshotPath(a Artifact) string {
	return filepath.Join(r.repoDir(a.Repo), "snapshots", revisionOrMain(a.Revision), filepath.FromSlash(a.Filename))
}

func (r *Resolver) fromHub(ctx context.Context, a Artifact) (string, error) {
	if a.Filename == "" {
		return "", fmt.Errorf("artifact in %s has no filename", a.Repo)
	}

	snapshot := r.SnapshotPath(a)
	if info, err := os.Stat(snapshot); err == nil && !info.IsDir() {
		r.log.Debug("model found in cache", zap.String("path", snapshot))
		return snapshot, nil
	}

	if r.offline {
		return "", fmt.Errorf("%s/%s not cached and hub is offline", a.Repo, a.Filename)
	}

	blob, err := r.download(ctx, a)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(snapshot), 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := link(blob, snapshot); err != nil {
		return "", fmt.Errorf("failed to link snapshot: %w", err)
	}

	r.log.Info("model downloaded", zap.String("repo", a.Repo), zap.String("path", snapshot))
	return snapshot, nil
}

// download streams the file into blobs/, naming it by its sha256.
func (r *Resolver) download(ctx context.Context, a Artifact) (string, error) {
	u := fmt.Sprintf("%s/%s/resolve/%s/%s",
		r.endpoint, a.Repo, url.PathEscape(revisionOrMain(a.Revision)), a.Filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s in %s@%s: %w", a.Filename, a.Repo, revisionOrMain(a.Revision), ErrNotPublished)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: %s", u, resp.Status)
	}

	blobs := filepath.Join(r.repoDir(a.Repo), "blobs")
	if err := os.MkdirAll(blobs, 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(blobs, "download-*.incomplete")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to download %s: %w", u, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	blob := filepath.Join(blobs, hex.EncodeToString(hasher.Sum(nil)))
	if err := os.Rename(tmp.Name(), blob); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return blob, nil
}

func (r *Resolver) repoDir(repo string) string {
	return filepath.Join(r.cacheDir, "models--"+strings.ReplaceAll(repo, "/", "--"))
}

func revisionOrMain(rev string) string {
	if rev == "" {
		return "main"
	}
	return rev
}

// link points snapshot at blob, falling back to a copy where symlinks are
// not available.
func link(blob, snapshot string) error {
	_ = os.Remove(snapshot)
	rel, err := filepath.Rel(filepath.Dir(snapshot), blob)
	if err == nil {
		if err := os.Symlink(rel, snapshot); err == nil {
			return nil
		}
	}

	src, err := os.Open(blob)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(snapshot)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
