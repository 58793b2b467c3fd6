package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client used by S3Backend.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Options configures an S3 or S3-compatible bucket.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint targets an S3-compatible service (MinIO, Ceph) using path-style addressing.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Backend maps store paths onto object keys below an optional prefix.
// Directories are implicit, so MkdirAll is a no-op.
type S3Backend struct {
	client s3API
	bucket string
	prefix string
}

// NewS3 loads the default AWS configuration chain, overridden by any explicit
// region, credentials, or endpoint in opts.
func NewS3(ctx context.Context, opts S3Options) (*S3Backend, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Backend(client, opts.Bucket, opts.Prefix), nil
}

func newS3Backend(client s3API, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (b *S3Backend) key(p string) string {
	rel := strings.TrimPrefix(CleanPath(p), "/")
	if b.prefix == "" {
		return rel
	}
	if rel == "" {
		return b.prefix
	}
	return b.prefix + "/" + rel
}

func (b *S3Backend) List(ctx context.Context, dir string) ([]Entry, error) {
	dirKey := b.key(dir)
	listPrefix := ""
	if dirKey != "" {
		listPrefix = dirKey + "/"
	}
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	})
	var entries []Entry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list bucket=%s prefix=%s: %w", b.bucket, listPrefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := path.Base(strings.TrimSuffix(aws.ToString(cp.Prefix), "/"))
			entries = append(entries, Entry{Name: name, Path: path.Join(CleanPath(dir), name), IsDir: true})
		}
		for _, obj := range page.Contents {
			objKey := aws.ToString(obj.Key)
			if objKey == listPrefix {
				continue
			}
			name := path.Base(objKey)
			entries = append(entries, Entry{
				Name:    name,
				Path:    path.Join(CleanPath(dir), name),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	return entries, nil
}

func (b *S3Backend) Download(ctx context.Context, remotePath string, w io.Writer) error {
	objectKey := b.key(remotePath)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return s3Error("get object", b.bucket, objectKey, err)
	}
	defer out.Body.Close()
	_, err = io.Copy(w, out.Body)
	return err
}

func (b *S3Backend) Upload(ctx context.Context, r io.Reader, remotePath string) error {
	objectKey := b.key(remotePath)
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
		Body:   r,
	}
	if ct := mime.TypeByExtension(path.Ext(objectKey)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return s3Error("put object", b.bucket, objectKey, err)
	}
	return nil
}

func (b *S3Backend) MkdirAll(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (b *S3Backend) Remove(ctx context.Context, remotePath string) error {
	objectKey := b.key(remotePath)
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	}); err != nil {
		return s3Error("delete object", b.bucket, objectKey, err)
	}
	return nil
}

func (b *S3Backend) Stat(ctx context.Context, remotePath string) (Entry, error) {
	objectKey := b.key(remotePath)
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return Entry{}, s3Error("head object", b.bucket, objectKey, err)
	}
	clean := CleanPath(remotePath)
	return Entry{
		Name:    path.Base(clean),
		Path:    clean,
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

func s3Error(op, bucket, key string, err error) error {
	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return fmt.Errorf("s3 %s bucket=%s key=%s: %w: %w", op, bucket, key, fs.ErrNotExist, err)
	}
	return fmt.Errorf("s3 %s bucket=%s key=%s: %w", op, bucket, key, err)
}
