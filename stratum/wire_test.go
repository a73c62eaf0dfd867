package stratum

import (
	"encoding/xml"
	"errors"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// List decoding
// -----------------------------------------------------------------------------

const listPage = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>bucket</Name>
  <NextContinuationToken>token-1</NextContinuationToken>
  <Contents>
    <Key>data/a.csv</Key>
    <LastModified>2024-05-01T10:00:00Z</LastModified>
    <ETag>&quot;abc123&quot;</ETag>
    <Size>42</Size>
  </Contents>
  <Contents>
    <Key>data/b.csv</Key>
    <LastModified>2024-05-02T11:30:00Z</LastModified>
    <ETag>&quot;def456&quot;</ETag>
    <Size>7</Size>
  </Contents>
  <CommonPrefixes>
    <Prefix>data/archive/</Prefix>
  </CommonPrefixes>
</ListBucketResult>`

func TestListResponse_Decode(t *testing.T) {
	var page ListResponse
	if err := xml.Unmarshal([]byte(listPage), &page); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	result, err := page.Result()
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}

	if page.NextContinuationToken != "token-1" {
		t.Errorf("token = %q, want token-1", page.NextContinuationToken)
	}
	if len(result.Objects) != 2 {
		t.Fatalf("got %d objects, want 2", len(result.Objects))
	}

	first := result.Objects[0]
	if first.Location != MustPath("data/a.csv") {
		t.Errorf("location = %q", first.Location.String())
	}
	if first.Size != 42 {
		t.Errorf("size = %d, want 42", first.Size)
	}
	if first.ETag != `"abc123"` {
		t.Errorf("etag = %q", first.ETag)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !first.LastModified.Equal(want) {
		t.Errorf("last modified = %v, want %v", first.LastModified, want)
	}

	if len(result.CommonPrefixes) != 1 || result.CommonPrefixes[0] != MustPath("data/archive") {
		t.Errorf("common prefixes = %v", result.CommonPrefixes)
	}
}

func TestListResponse_InvalidKeyRejectsPage(t *testing.T) {
	page := ListResponse{
		Contents: []ListContents{
			{Key: "ok/key", Size: 1},
			{Key: "bad/../key", Size: 2},
		},
	}
	if _, err := page.Result(); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

func TestListResponse_InvalidPrefixRejectsPage(t *testing.T) {
	page := ListResponse{
		CommonPrefixes: []ListPrefix{{Prefix: "../escape/"}},
	}
	if _, err := page.Result(); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

func TestListResponse_EmptyPage(t *testing.T) {
	result, err := (ListResponse{}).Result()
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if len(result.Objects) != 0 || len(result.CommonPrefixes) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

// -----------------------------------------------------------------------------
// Multipart entities
// -----------------------------------------------------------------------------

func TestInitiateMultipartUploadResult_Decode(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<InitiateMultipartUploadResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Bucket>bucket</Bucket>
  <Key>data/big.bin</Key>
  <UploadId>session-token-9</UploadId>
</InitiateMultipartUploadResult>`

	var result InitiateMultipartUploadResult
	if err := xml.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if result.UploadID != "session-token-9" {
		t.Errorf("upload id = %q, want session-token-9", result.UploadID)
	}
}

func TestNewCompleteMultipartUpload_Body(t *testing.T) {
	parts := []PartID{
		{ContentID: "etag-1", Size: 100},
		{ContentID: "etag-2", Size: 50},
	}

	body, err := xml.Marshal(NewCompleteMultipartUpload(parts))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// encoding/xml renders '"' in character data as &#34;.
	expected := `<CompleteMultipartUpload>` +
		`<Part><ETag>&#34;etag-1&#34;</ETag><PartNumber>1</PartNumber></Part>` +
		`<Part><ETag>&#34;etag-2&#34;</ETag><PartNumber>2</PartNumber></Part>` +
		`</CompleteMultipartUpload>`
	if string(body) != expected {
		t.Errorf("body = %s\nwant  %s", body, expected)
	}
}

func TestNewCompleteMultipartUpload_PartNumbersByPosition(t *testing.T) {
	parts := []PartID{
		{ContentID: "z", Size: 10},
		{ContentID: "y", Size: 10},
		{ContentID: "x", Size: 3},
	}

	upload := NewCompleteMultipartUpload(parts)
	for i, part := range upload.Parts {
		if part.PartNumber != i+1 {
			t.Errorf("part %d: number = %d, want %d", i, part.PartNumber, i+1)
		}
	}
	if upload.Parts[0].ETag != `"z"` {
		t.Errorf("etag = %q, want quoted token", upload.Parts[0].ETag)
	}
}
