package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/glorpus-work/aipfetch/internal/logger"
	"github.com/glorpus-work/aipfetch/pkg/auth"
	pkgerrors "github.com/glorpus-work/aipfetch/pkg/errors"
	"github.com/glorpus-work/aipfetch/pkg/fsutil"
	"github.com/hashicorp/go-version"
)

// DefaultChunkSize bounds the memory used per transfer.
const DefaultChunkSize = 8 * 1024

// SupportedAPI is the storage service API range the client speaks.
const SupportedAPI = ">= 2, < 3"

// ClientOptions configure a Client.
type ClientOptions struct {
	BaseURL      string             // storage service root, e.g. https://ss.example.org:8000
	APIVersion   string             // storage service API version, e.g. "2"
	Auth         auth.Authenticator // applied to every request
	Timeout      time.Duration      // per request; 0 means none
	UserAgent    string
	ChunkSize    int
	AtomicWrites bool        // write fresh transfers to a .part file and rename on success
	Progress     TrackerFunc // nil disables progress
	Logger       *logger.Logger
	HTTPClient   *http.Client // overrides Timeout when set
}

// Client talks to the storage service file endpoints. It implements both
// Prober and Transferrer.
type Client struct {
	client       *http.Client
	base         *url.URL
	apiPrefix    string
	auth         auth.Authenticator
	userAgent    string
	chunkSize    int
	atomicWrites bool
	progress     TrackerFunc
	log          *logger.Logger
}

// NewClient creates a new storage service client.
func NewClient(opts ClientOptions) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrBaseURLInvalid, "%q", opts.BaseURL)
	}
	prefix, err := APIPrefix(opts.APIVersion)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "aipfetch/1.0"
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		client:       httpClient,
		base:         base,
		apiPrefix:    prefix,
		auth:         opts.Auth,
		userAgent:    userAgent,
		chunkSize:    chunkSize,
		atomicWrites: opts.AtomicWrites,
		progress:     opts.Progress,
		log:          log,
	}, nil
}

// APIPrefix validates apiVersion against SupportedAPI and returns the URL
// prefix for it, e.g. "api/v2".
func APIPrefix(apiVersion string) (string, error) {
	if apiVersion == "" {
		apiVersion = "2"
	}
	v, err := version.NewVersion(apiVersion)
	if err != nil {
		return "", pkgerrors.Wrapf(pkgerrors.ErrUnsupportedAPI, "%q", apiVersion)
	}
	constraint := version.MustConstraints(version.NewConstraint(SupportedAPI))
	if !constraint.Check(v) {
		return "", pkgerrors.ErrUnsupportedAPIWithVersion(apiVersion, SupportedAPI)
	}
	return fmt.Sprintf("api/v%d", v.Segments()[0]), nil
}

// FileURL returns the download endpoint for an AIP.
func (c *Client) FileURL(id string) string {
	u := c.base.JoinPath(c.apiPrefix, "file", id, "download")
	// The storage service routes require the trailing slash.
	return u.String() + "/"
}

func (c *Client) newRequest(ctx context.Context, method, id string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.FileURL(id), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.auth != nil {
		if err := c.auth.Apply(req); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to apply credentials")
		}
	}
	return req, nil
}

// Probe issues a HEAD request and returns the declared Content-Length.
func (c *Client) Probe(ctx context.Context, id string) (int64, bool) {
	req, err := c.newRequest(ctx, http.MethodHead, id)
	if err != nil {
		c.log.Debug("Size probe failed", logger.Fields{"uuid": id, "error": err})
		return 0, false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("Size probe failed", logger.Fields{"uuid": id, "error": err})
		return 0, false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug("Size probe failed", logger.Fields{"uuid": id, "status": resp.StatusCode})
		return 0, false
	}

	size := resp.ContentLength
	if size < 0 {
		c.log.Debug("Size probe returned no Content-Length", logger.Fields{"uuid": id})
		return 0, false
	}
	c.log.Debug("Probed remote size", logger.Fields{"uuid": id, "size": size})
	return size, true
}

// Transfer streams the AIP body to req.Path.
//
// With a non-zero Offset a "Range: bytes=N-" header is sent and the file is
// opened for append. A server that ignores the range (200 instead of 206) is
// handled by truncating and restarting from zero.
func (c *Client) Transfer(ctx context.Context, req Request) (int64, error) {
	if req.Path == "" {
		return 0, pkgerrors.Wrap(pkgerrors.ErrInvalidPath, "empty destination")
	}

	httpReq, err := c.newRequest(ctx, http.MethodGet, req.ID)
	if err != nil {
		return 0, err
	}
	if req.Offset > 0 {
		httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", req.Offset))
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "download failed")
	}
	defer func() { _ = resp.Body.Close() }()

	offset := req.Offset
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if offset == 0 {
			return 0, pkgerrors.Wrap(pkgerrors.ErrDownloadFailed, "partial content for a full request")
		}
	case http.StatusOK:
		if offset > 0 {
			c.log.Info("Server ignored range request, restarting download", logger.Fields{"uuid": req.ID, "offset": offset})
			offset = 0
		}
	default:
		return 0, pkgerrors.ErrUnexpectedStatusWithCode(resp.StatusCode)
	}

	total := req.Total
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	out, target, err := c.openDestination(req.Path, offset)
	if err != nil {
		return 0, err
	}

	tracker := c.tracker(req, total, offset)
	written, copyErr := c.copyChunks(out, resp.Body, tracker)
	tracker.Finish()

	if copyErr == nil && resp.ContentLength >= 0 && written != resp.ContentLength {
		copyErr = fmt.Errorf("%w: got %d of %d bytes", pkgerrors.ErrShortTransfer, written, resp.ContentLength)
	}
	if copyErr == nil {
		copyErr = out.Sync()
	}
	if err := out.Close(); err != nil && copyErr == nil {
		copyErr = pkgerrors.Wrap(err, "could not close file")
	}
	if copyErr != nil {
		if target != req.Path {
			_ = os.Remove(target)
		}
		return written, copyErr
	}

	if target != req.Path {
		if err := fsutil.Move(target, req.Path); err != nil {
			return written, pkgerrors.Wrap(err, "could not finalize file")
		}
	}
	return written, nil
}

// openDestination opens the file the body is written to and returns it with its path.
func (c *Client) openDestination(path string, offset int64) (*os.File, string, error) {
	if err := fsutil.EnsureFileDir(path); err != nil {
		return nil, "", pkgerrors.Wrap(err, "could not create download dir")
	}

	if offset > 0 {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, fsutil.FileModeDefault)
		if err != nil {
			return nil, "", pkgerrors.Wrap(err, "could not open file for append")
		}
		return f, path, nil
	}

	target := path
	if c.atomicWrites {
		target = path + fsutil.PartSuffix
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "could not create file")
	}
	return f, target, nil
}

// copyChunks copies src to dst through a fixed-size buffer, reporting each chunk.
func (c *Client) copyChunks(dst io.Writer, src io.Reader, tracker Tracker) (int64, error) {
	buf := make([]byte, c.chunkSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			m, err := dst.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, pkgerrors.Wrap(err, "could not write file")
			}
			if m != n {
				return written, pkgerrors.Wrap(io.ErrShortWrite, "could not write file")
			}
			tracker.Add(int64(n))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, nil
			}
			return written, pkgerrors.Wrap(readErr, "could not read response body")
		}
	}
}

func (c *Client) tracker(req Request, total, initial int64) Tracker {
	if c.progress == nil {
		return noopTracker{}
	}
	label := req.Label
	if label == "" {
		label = req.ID
	}
	return c.progress(label, total, initial)
}

type noopTracker struct{}

func (noopTracker) Add(int64) {}
func (noopTracker) Finish()   {}
