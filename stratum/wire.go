package stratum

import (
	"encoding/xml"
	"fmt"
	"time"
)

// The list and multipart wire entities shared by S3-compatible backends.
// Field tags follow the 2006-03-01 S3 schema; roots are left unnamed so
// backends with differently named response roots can reuse the shapes.

// ListResponse is the raw wire form of one page of a bucket listing.
type ListResponse struct {
	Contents              []ListContents `xml:"Contents"`
	CommonPrefixes        []ListPrefix   `xml:"CommonPrefixes"`
	NextContinuationToken string         `xml:"NextContinuationToken"`
}

// ListPrefix is one rolled-up key prefix of a delimited listing.
type ListPrefix struct {
	Prefix string `xml:"Prefix"`
}

// ListContents is the wire form of one listed object.
type ListContents struct {
	Key          string    `xml:"Key"`
	Size         int64     `xml:"Size"`
	LastModified time.Time `xml:"LastModified"`
	ETag         string    `xml:"ETag"`
}

// Result validates the wire listing into a ListResult. Every key and
// common prefix must parse as a well-formed Path or the whole page is
// rejected.
func (r ListResponse) Result() (ListResult, error) {
	out := ListResult{}

	if len(r.CommonPrefixes) > 0 {
		out.CommonPrefixes = make([]Path, 0, len(r.CommonPrefixes))
		for _, p := range r.CommonPrefixes {
			path, err := ParsePath(p.Prefix)
			if err != nil {
				return ListResult{}, fmt.Errorf("common prefix: %w", err)
			}
			out.CommonPrefixes = append(out.CommonPrefixes, path)
		}
	}

	if len(r.Contents) > 0 {
		out.Objects = make([]ObjectMeta, 0, len(r.Contents))
		for _, c := range r.Contents {
			meta, err := c.meta()
			if err != nil {
				return ListResult{}, err
			}
			out.Objects = append(out.Objects, meta)
		}
	}

	return out, nil
}

func (c ListContents) meta() (ObjectMeta, error) {
	location, err := ParsePath(c.Key)
	if err != nil {
		return ObjectMeta{}, fmt.Errorf("listed key: %w", err)
	}
	return ObjectMeta{
		Location:     location,
		LastModified: c.LastModified,
		Size:         c.Size,
		ETag:         c.ETag,
	}, nil
}

// InitiateMultipartUploadResult carries the opaque session token returned
// by multipart initiation.
type InitiateMultipartUploadResult struct {
	UploadID string `xml:"UploadId"`
}

// CompleteMultipartUpload is the request body finalizing a multipart
// upload.
type CompleteMultipartUpload struct {
	XMLName xml.Name        `xml:"CompleteMultipartUpload"`
	Parts   []CompletedPart `xml:"Part"`
}

// CompletedPart names one uploaded part in a completion request.
type CompletedPart struct {
	ETag       string `xml:"ETag"`
	PartNumber int    `xml:"PartNumber"`
}

// NewCompleteMultipartUpload builds the completion body from an already
// ordered part list. Part numbers are 1-based and assigned strictly by
// position; entity tags are wrapped in literal quote characters, the
// representation servers expect.
func NewCompleteMultipartUpload(parts []PartID) CompleteMultipartUpload {
	completed := make([]CompletedPart, len(parts))
	for i, part := range parts {
		completed[i] = CompletedPart{
			ETag:       `"` + part.ContentID + `"`,
			PartNumber: i + 1,
		}
	}
	return CompleteMultipartUpload{Parts: completed}
}
