package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, puts: map[string]string{}}
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{}
	seen := map[string]bool{}
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			cp := prefix + rest[:i+1]
			if !seen[cp] {
				seen[cp] = true
				out.CommonPrefixes = append(out.CommonPrefixes, s3types.CommonPrefix{Prefix: aws.String(cp)})
			}
			continue
		}
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.puts[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func TestS3BackendKeysUsePrefix(t *testing.T) {
	fake := newFakeS3()
	backend := newS3Backend(fake, "recipes", "/cookbook/")
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, strings.NewReader(`{"name":"Soup"}`), "/Rezepte/Soup/recipe.json"))
	assert.Contains(t, fake.objects, "cookbook/Rezepte/Soup/recipe.json")
	assert.Equal(t, "application/json", fake.puts["cookbook/Rezepte/Soup/recipe.json"])

	var buf bytes.Buffer
	require.NoError(t, backend.Download(ctx, "Rezepte/Soup/recipe.json", &buf))
	assert.Equal(t, `{"name":"Soup"}`, buf.String())
}

func TestS3BackendListSeparatesDirectories(t *testing.T) {
	fake := newFakeS3()
	fake.objects["Screenshots/a.jpg"] = []byte("a")
	fake.objects["Screenshots/b.png"] = []byte("bb")
	fake.objects["Screenshots/old/c.jpg"] = []byte("c")
	backend := newS3Backend(fake, "bucket", "")

	entries, err := backend.List(context.Background(), "/Screenshots")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "old", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "a.jpg", entries[1].Name)
	assert.Equal(t, int64(2), entries[2].Size)
}

func TestS3BackendNotFoundMapsToErrNotExist(t *testing.T) {
	backend := newS3Backend(newFakeS3(), "bucket", "")
	ctx := context.Background()

	_, err := backend.Stat(ctx, "/missing.jpg")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	err = backend.Download(ctx, "/missing.jpg", io.Discard)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestS3ClientExists(t *testing.T) {
	fake := newFakeS3()
	fake.objects["a.jpg"] = []byte("a")
	client, _ := newTestClient(newS3Backend(fake, "bucket", ""), 3)

	ok, err := client.Exists(context.Background(), "/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.Exists(context.Background(), "/b.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}
