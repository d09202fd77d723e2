package mediastore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a simple fake implementing s3API for tests.
type fakeS3 struct {
	putErr  error
	lastIn  *s3.PutObjectInput
	lastRaw []byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastIn = in
	if in.Body != nil {
		f.lastRaw, _ = io.ReadAll(in.Body)
	}
	return &s3.PutObjectOutput{}, f.putErr
}

func mustNew(t *testing.T, api s3API, opts ...Option) *Client {
	t.Helper()
	c, err := New(api, "chat-media", "https://chat-media.s3.us-east-1.amazonaws.com/", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "b", "https://x")
	require.ErrorContains(t, err, "api must not be nil")

	_, err = New(&fakeS3{}, " ", "https://x")
	require.ErrorContains(t, err, "bucket")

	_, err = New(&fakeS3{}, "b", "")
	require.ErrorContains(t, err, "public base URL")

	_, err = New(&fakeS3{}, "b", "not a url")
	require.ErrorContains(t, err, "invalid public base URL")
}

func TestVirtualHostedURL(t *testing.T) {
	require.Equal(t, "https://media.s3.eu-west-1.amazonaws.com", VirtualHostedURL("media", "eu-west-1"))
	require.Equal(t, "https://media.s3.amazonaws.com", VirtualHostedURL("media", ""))
}

func TestPut_HappyPath(t *testing.T) {
	api := &fakeS3{}
	c := mustNew(t, api)

	url, err := c.Put(context.Background(), "audio/1700000000123-abc.mp3", "audio/mpeg", []byte("mp3"))
	require.NoError(t, err)
	require.Equal(t, "https://chat-media.s3.us-east-1.amazonaws.com/audio/1700000000123-abc.mp3", url)

	require.Equal(t, "chat-media", *api.lastIn.Bucket)
	require.Equal(t, "audio/1700000000123-abc.mp3", *api.lastIn.Key)
	require.Equal(t, "audio/mpeg", *api.lastIn.ContentType)
	require.Equal(t, int64(3), *api.lastIn.ContentLength)
	require.Equal(t, types.ObjectCannedACLPublicRead, api.lastIn.ACL)
	require.Equal(t, []byte("mp3"), api.lastRaw)
}

func TestPut_WithoutACL(t *testing.T) {
	api := &fakeS3{}
	c := mustNew(t, api, WithACL(""))

	_, err := c.Put(context.Background(), "images/1.png", "image/png", []byte("png"))
	require.NoError(t, err)
	require.Empty(t, api.lastIn.ACL)
}

func TestPut_EscapesKey(t *testing.T) {
	c := mustNew(t, &fakeS3{})

	url, err := c.Put(context.Background(), "/images/a b#1.png", "image/png", []byte("png"))
	require.NoError(t, err)
	require.Equal(t, "https://chat-media.s3.us-east-1.amazonaws.com/images/a%20b%231.png", url)
}

func TestPut_Errors(t *testing.T) {
	c := mustNew(t, &fakeS3{})
	_, err := c.Put(context.Background(), " ", "image/png", []byte("png"))
	require.ErrorContains(t, err, "key is required")

	_, err = c.Put(context.Background(), "images/1.png", "image/png", nil)
	require.ErrorContains(t, err, "empty object")

	failing := mustNew(t, &fakeS3{putErr: errors.New("AccessDenied")})
	_, err = failing.Put(context.Background(), "images/1.png", "image/png", []byte("png"))
	require.ErrorContains(t, err, "AccessDenied")
	require.ErrorContains(t, err, "images/1.png")
}
