package load

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
)

const s3Scheme = "s3://"

// Opener opens an input file for reading.
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// ObjectGetter is the subset of the S3 client used to fetch input files.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// FileOpener opens local paths and s3://bucket/key URLs. Paths ending in
// .gz are decompressed on the fly.
type FileOpener struct {
	mu sync.Mutex
	s3 ObjectGetter
}

// NewFileOpener returns an opener. A nil client is created on first use
// from the default AWS credential chain.
func NewFileOpener(client ObjectGetter) *FileOpener {
	return &FileOpener{s3: client}
}

// Open opens path.
func (o *FileOpener) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if strings.HasPrefix(path, s3Scheme) {
		rc, err = o.openS3(ctx, path)
	} else {
		rc, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(path, ".gz") {
		return rc, nil
	}
	zr, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}
	return &gzipReadCloser{Reader: zr, src: rc}, nil
}

func (o *FileOpener) openS3(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(path)
	if err != nil {
		return nil, err
	}

	client, err := o.client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	return out.Body, nil
}

func (o *FileOpener) client(ctx context.Context) (ObjectGetter, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s3 != nil {
		return o.s3, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	o.s3 = s3.NewFromConfig(cfg)
	return o.s3, nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(url string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(url, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("not an s3 url: %q", url)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url must be s3://bucket/key: %q", url)
	}
	return bucket, key, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	src io.Closer
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.src.Close(); err != nil {
		return err
	}
	return zerr
}
