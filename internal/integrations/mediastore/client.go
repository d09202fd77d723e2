package mediastore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the minimal S3 interface required by Client.
// *s3.Client from aws-sdk-go-v2 satisfies this interface.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads generated media to a bucket and hands back the URL the
// object is publicly reachable at.
type Client struct {
	api           s3API
	bucket        string
	publicBaseURL string
	acl           types.ObjectCannedACL
}

type Option func(*Client)

// WithACL overrides the canned ACL applied to uploads. An empty value sends no
// ACL, for buckets that enforce object ownership and grant reads by policy.
func WithACL(acl string) Option {
	return func(c *Client) {
		c.acl = types.ObjectCannedACL(strings.TrimSpace(acl))
	}
}

// New creates a Client. publicBaseURL is the prefix object keys are appended
// to when building public URLs; see VirtualHostedURL for the AWS default.
func New(api s3API, bucket, publicBaseURL string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("mediastore: api must not be nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("mediastore: bucket must not be empty")
	}
	publicBaseURL = strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if publicBaseURL == "" {
		return nil, errors.New("mediastore: public base URL must not be empty")
	}
	if _, err := url.ParseRequestURI(publicBaseURL); err != nil {
		return nil, fmt.Errorf("mediastore: invalid public base URL: %w", err)
	}
	c := &Client{
		api:           api,
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
		acl:           types.ObjectCannedACLPublicRead,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// VirtualHostedURL is the public base URL of an AWS bucket.
func VirtualHostedURL(bucket, region string) string {
	if strings.TrimSpace(region) == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

// Put uploads data under key and returns its public URL. The caller gives up
// the bytes; nothing is retained after the upload.
func (c *Client) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("mediastore: key is required")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("mediastore: refusing to upload empty object %q", key)
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if c.acl != "" {
		in.ACL = c.acl
	}

	if _, err := c.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("mediastore: put object %q: %w", key, err)
	}
	return c.objectURL(key), nil
}

func (c *Client) objectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.publicBaseURL + "/" + strings.Join(segments, "/")
}
