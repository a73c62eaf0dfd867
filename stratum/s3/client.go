package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/smithy-go/logging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/justapithecus/stratum/internal/percent"
	"github.com/justapithecus/stratum/stratum"
)

const (
	taggingHeader    = "x-amz-tagging"
	copySourceHeader = "x-amz-copy-source"

	// deleteNamespace is required on the root of DeleteObjects request
	// bodies.
	deleteNamespace = "http://s3.amazonaws.com/doc/2006-03-01/"
)

// Client issues object operations against one bucket. It is safe for
// concurrent use; all state is the immutable Config and the shared
// transport.
type Client struct {
	config  Config
	client  stratum.Doer
	retryer aws.Retryer
	logger  logging.Logger
	signer  *v4.Signer
}

// New validates cfg, fills defaults, and returns a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("s3: region is required")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("s3: credentials provider is required")
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	if cfg.BucketEndpoint == "" {
		cfg.BucketEndpoint = cfg.Endpoint + "/" + cfg.Bucket
	}
	cfg.BucketEndpoint = strings.TrimSuffix(cfg.BucketEndpoint, "/")

	c := &Client{
		config:  cfg,
		client:  cfg.HTTPClient,
		retryer: cfg.Retryer,
		logger:  cfg.Logger,
		signer:  newSigner(),
	}
	if c.client == nil {
		c.client = http.DefaultClient
	}
	if c.retryer == nil {
		c.retryer = retry.NewStandard()
	}
	if c.logger == nil {
		c.logger = logging.Nop{}
	}
	return c, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *Config {
	return &c.config
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return stratum.SendRetry(ctx, c.client, c.retryer, c.logger, req)
}

// Put uploads body to path. query carries extra parameters (for example
// the multipart part coordinates), tags become the object's tag set. The
// caller owns the returned response body.
func (c *Client) Put(ctx context.Context, path stratum.Path, body []byte, query url.Values, tags map[string]string) (*http.Response, error) {
	u := c.config.pathURL(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	// An empty bytes.Reader makes net/http send an explicit
	// Content-Length: 0; servers reject zero-byte PUTs without one.
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return nil, &stratum.OpError{Op: "put", Path: path.String(), Err: err}
	}

	var payloadSHA256 []byte
	if cs := c.config.Checksum; cs != "" {
		digest := cs.Digest(body)
		req.Header.Set(cs.HeaderName(), base64.StdEncoding.EncodeToString(digest))
		if cs == ChecksumSHA256 {
			payloadSHA256 = digest
		}
	}

	if ct := c.contentType(path, body); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	if len(tags) > 0 {
		req.Header.Set(taggingHeader, encodeTags(tags))
	}

	if err := c.sign(ctx, req, body, payloadSHA256); err != nil {
		return nil, &stratum.OpError{Op: "put", Path: path.String(), Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, &stratum.OpError{Op: "put", Path: path.String(), Err: err}
	}
	return resp, nil
}

// Delete removes the object at path. Deleting a missing object is not an
// error.
func (c *Client) Delete(ctx context.Context, path stratum.Path, query url.Values) error {
	u := c.config.pathURL(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &stratum.OpError{Op: "delete", Path: path.String(), Err: err}
	}
	if err := c.sign(ctx, req, nil, nil); err != nil {
		return &stratum.OpError{Op: "delete", Path: path.String(), Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return &stratum.OpError{Op: "delete", Path: path.String(), Err: err}
	}
	resp.Body.Close()
	return nil
}

// Delete-batch wire entities.

type deleteRequest struct {
	XMLName xml.Name       `xml:"Delete"`
	Xmlns   string         `xml:"xmlns,attr"`
	Objects []deleteObject `xml:"Object"`
}

type deleteObject struct {
	Key string `xml:"Key"`
}

type deleteResponse struct {
	Deleted []deletedObject `xml:"Deleted"`
	Errors  []deleteError   `xml:"Error"`
}

type deletedObject struct {
	Key string `xml:"Key"`
}

type deleteError struct {
	Key     string `xml:"Key"`
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

// DeleteResult is the outcome of one path of a batch delete. Err is nil
// for deleted paths and a *stratum.DeleteFailedError for rejected ones.
type DeleteResult struct {
	Path stratum.Path
	Err  error
}

// BulkDelete removes up to 1000 objects in one DeleteObjects request.
//
// The returned slice has one entry per input path, in input order,
// regardless of the order (or omissions) of the server response; paths the
// response does not mention are treated as deleted. A per-object rejection
// is recorded in its slot and never aborts sibling deletions. An empty
// input returns an empty slice without sending a request.
func (c *Client) BulkDelete(ctx context.Context, paths []stratum.Path) ([]DeleteResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	request := deleteRequest{Xmlns: deleteNamespace, Objects: make([]deleteObject, len(paths))}
	for i, p := range paths {
		// Keys are carried as literal text; XML escaping is the
		// serializer's concern, percent-encoding does not apply here.
		request.Objects[i] = deleteObject{Key: p.String()}
	}
	body, err := xml.Marshal(&request)
	if err != nil {
		return nil, &stratum.OpError{Op: "delete objects", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BucketEndpoint+"?delete", bytes.NewReader(body))
	if err != nil {
		return nil, &stratum.OpError{Op: "delete objects", Err: err}
	}
	req.Header.Set("Content-Type", "application/xml")

	// The server rejects DeleteObjects without an integrity header, so a
	// checksum is computed even when none is configured. SHA256 doubles
	// as the signing payload hash.
	cs := c.config.Checksum
	if cs == "" {
		cs = ChecksumSHA256
	}
	digest := cs.Digest(body)
	req.Header.Set(cs.HeaderName(), base64.StdEncoding.EncodeToString(digest))
	var payloadSHA256 []byte
	if cs == ChecksumSHA256 {
		payloadSHA256 = digest
	}

	if err := c.sign(ctx, req, body, payloadSHA256); err != nil {
		return nil, &stratum.OpError{Op: "delete objects", Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, &stratum.OpError{Op: "delete objects", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &stratum.OpError{Op: "delete objects", Err: fmt.Errorf("reading response body: %w", err)}
	}
	var response deleteResponse
	if err := xml.Unmarshal(raw, &response); err != nil {
		return nil, &stratum.InvalidResponseError{Op: "delete objects", Err: err}
	}

	// Assume every path succeeded, then fill in reported failures. This
	// keeps output order equal to input order whatever the response
	// ordering.
	results := make([]DeleteResult, len(paths))
	for i, p := range paths {
		results[i] = DeleteResult{Path: p}
	}
	for _, e := range response.Errors {
		failed, err := stratum.ParsePath(e.Key)
		if err != nil {
			return nil, &stratum.InvalidResponseError{Op: "delete objects", Err: err}
		}
		i := indexOf(paths, failed)
		if i < 0 {
			return nil, &stratum.InvalidResponseError{
				Op:  "delete objects",
				Err: fmt.Errorf("error for key %q not present in request", e.Key),
			}
		}
		results[i].Err = &stratum.DeleteFailedError{Path: e.Key, Code: e.Code, Message: e.Message}
	}

	return results, nil
}

// indexOf locates p in paths by equality scan. Linear search is fine for
// the 1000-key batch ceiling.
func indexOf(paths []stratum.Path, p stratum.Path) int {
	for i, candidate := range paths {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Copy server-side copies from into to. With overwrite disabled a
// configured CopyIfNotExists strategy is required; without one Copy fails
// with stratum.ErrNotSupported before any request is sent. A precondition
// failure from the server surfaces as *stratum.AlreadyExistsError for the
// destination.
func (c *Client) Copy(ctx context.Context, from, to stratum.Path, overwrite bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.config.pathURL(to), nil)
	if err != nil {
		return &stratum.OpError{Op: "copy", Path: from.String(), Err: err}
	}
	req.Header.Set(copySourceHeader, c.config.Bucket+"/"+encodePath(from))

	if !overwrite {
		if c.config.CopyIfNotExists == nil {
			return fmt.Errorf("copy-if-not-exists: %w", stratum.ErrNotSupported)
		}
		req.Header.Set(c.config.CopyIfNotExists.Header, c.config.CopyIfNotExists.Value)
	}

	if err := c.sign(ctx, req, nil, nil); err != nil {
		return &stratum.OpError{Op: "copy", Path: from.String(), Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		var re *stratum.RequestError
		if errors.As(err, &re) && re.StatusCode == http.StatusPreconditionFailed {
			return &stratum.AlreadyExistsError{Path: to.String(), Err: err}
		}
		return &stratum.OpError{Op: "copy", Path: from.String(), Err: err}
	}
	resp.Body.Close()
	return nil
}

// CreateMultipart starts a multipart upload session for path and returns
// its opaque upload id.
func (c *Client) CreateMultipart(ctx context.Context, path stratum.Path) (stratum.MultipartID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.pathURL(path)+"?uploads=", nil)
	if err != nil {
		return "", &stratum.OpError{Op: "create multipart", Path: path.String(), Err: err}
	}
	if err := c.sign(ctx, req, nil, nil); err != nil {
		return "", &stratum.OpError{Op: "create multipart", Path: path.String(), Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return "", &stratum.OpError{Op: "create multipart", Path: path.String(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &stratum.OpError{Op: "create multipart", Path: path.String(), Err: fmt.Errorf("reading response body: %w", err)}
	}
	var result stratum.InitiateMultipartUploadResult
	if err := xml.Unmarshal(raw, &result); err != nil {
		return "", &stratum.InvalidResponseError{Op: "multipart", Err: err}
	}
	return result.UploadID, nil
}

// PutPart uploads one part of a multipart session. partIdx is zero-based;
// the wire part number is partIdx+1. The part's entity tag, unquoted, is
// the completion token.
func (c *Client) PutPart(ctx context.Context, path stratum.Path, uploadID stratum.MultipartID, partIdx int, body []byte) (stratum.PartID, error) {
	query := url.Values{
		"partNumber": {strconv.Itoa(partIdx + 1)},
		"uploadId":   {uploadID},
	}
	resp, err := c.Put(ctx, path, body, query, nil)
	if err != nil {
		return stratum.PartID{}, err
	}
	resp.Body.Close()

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return stratum.PartID{}, &stratum.InvalidResponseError{
			Op:  "multipart",
			Err: fmt.Errorf("part %d response missing ETag", partIdx+1),
		}
	}
	return stratum.PartID{
		ContentID: strings.Trim(etag, `"`),
		Size:      int64(len(body)),
	}, nil
}

// CompleteMultipart finalizes the session from an already ordered part
// list, assigning 1-based part numbers by position.
func (c *Client) CompleteMultipart(ctx context.Context, path stratum.Path, uploadID stratum.MultipartID, parts []stratum.PartID) error {
	body, err := xml.Marshal(stratum.NewCompleteMultipartUpload(parts))
	if err != nil {
		return &stratum.OpError{Op: "complete multipart", Path: path.String(), Err: err}
	}

	u := c.config.pathURL(path) + "?" + url.Values{"uploadId": {uploadID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return &stratum.OpError{Op: "complete multipart", Path: path.String(), Err: err}
	}
	if err := c.sign(ctx, req, body, nil); err != nil {
		return &stratum.OpError{Op: "complete multipart", Path: path.String(), Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return &stratum.OpError{Op: "complete multipart", Path: path.String(), Err: err}
	}
	resp.Body.Close()
	return nil
}

// AbortMultipart discards the session and any parts uploaded so far.
func (c *Client) AbortMultipart(ctx context.Context, path stratum.Path, uploadID stratum.MultipartID) error {
	u := c.config.pathURL(path) + "?" + url.Values{"uploadId": {uploadID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &stratum.OpError{Op: "abort multipart", Path: path.String(), Err: err}
	}
	if err := c.sign(ctx, req, nil, nil); err != nil {
		return &stratum.OpError{Op: "abort multipart", Path: path.String(), Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return &stratum.OpError{Op: "abort multipart", Path: path.String(), Err: err}
	}
	resp.Body.Close()
	return nil
}

// GetRequest implements stratum.GetClient.
func (c *Client) GetRequest(ctx context.Context, path stratum.Path, opts stratum.GetOptions, head bool) (*http.Response, error) {
	method := http.MethodGet
	if head {
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.pathURL(path), nil)
	if err != nil {
		return nil, &stratum.OpError{Op: "get", Path: path.String(), Err: err}
	}
	opts.Apply(req)

	if err := c.sign(ctx, req, nil, nil); err != nil {
		return nil, &stratum.OpError{Op: "get", Path: path.String(), Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, &stratum.OpError{Op: "get", Path: path.String(), Err: err}
	}
	return resp, nil
}

// ListRequest implements stratum.ListClient, fetching one page of the
// bucket listing.
func (c *Client) ListRequest(ctx context.Context, prefix string, delimiter bool, token, offset string) (stratum.ListResult, string, error) {
	query := url.Values{"list-type": {"2"}}
	if token != "" {
		query.Set("continuation-token", token)
	}
	if delimiter {
		query.Set("delimiter", stratum.Delimiter)
	}
	if prefix != "" {
		query.Set("prefix", prefix)
	}
	if offset != "" {
		query.Set("start-after", offset)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BucketEndpoint+"?"+query.Encode(), nil)
	if err != nil {
		return stratum.ListResult{}, "", &stratum.OpError{Op: "list", Err: err}
	}
	if err := c.sign(ctx, req, nil, nil); err != nil {
		return stratum.ListResult{}, "", &stratum.OpError{Op: "list", Err: err}
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return stratum.ListResult{}, "", &stratum.OpError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return stratum.ListResult{}, "", &stratum.OpError{Op: "list", Err: fmt.Errorf("reading response body: %w", err)}
	}
	var page stratum.ListResponse
	if err := xml.Unmarshal(raw, &page); err != nil {
		return stratum.ListResult{}, "", &stratum.InvalidResponseError{Op: "list", Err: err}
	}
	result, err := page.Result()
	if err != nil {
		return stratum.ListResult{}, "", &stratum.InvalidResponseError{Op: "list", Err: err}
	}
	return result, page.NextContinuationToken, nil
}

// contentType resolves the Content-Type for an upload: an explicit
// extension rule first, payload sniffing when enabled, otherwise none.
func (c *Client) contentType(path stratum.Path, body []byte) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path.String()), "."))
	if ct, ok := c.config.ContentTypes[ext]; ok {
		return ct
	}
	if c.config.DetectContentType && len(body) > 0 {
		if mt := mimetype.Detect(body); mt != nil {
			return mt.String()
		}
	}
	return ""
}

// encodePath percent-encodes an object key for use as a URL path,
// escaping everything outside the unreserved set but keeping the path
// delimiter.
func encodePath(p stratum.Path) string {
	return percent.StrictPath.Encode(p.String())
}

// encodeTags renders a tag set as strict-encoded k=v pairs joined by '&'.
func encodeTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(tags))
	for _, k := range keys {
		pairs = append(pairs, percent.Strict.Encode(k)+"="+percent.Strict.Encode(tags[k]))
	}
	return strings.Join(pairs, "&")
}

var (
	_ stratum.GetClient       = (*Client)(nil)
	_ stratum.ListClient      = (*Client)(nil)
	_ stratum.MultipartClient = (*Client)(nil)
)
