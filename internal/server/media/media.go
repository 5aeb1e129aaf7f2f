// Package media writes user and project pictures to S3-compatible object
// storage and returns their public URLs.
package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Upload is one incoming image.
type Upload struct {
	Body        io.Reader
	ContentType string
	Size        int64
}

// ObjectPutter is the subset of *s3.Client used by Store.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Buckets names the two buckets and the base URLs their objects are served
// from.
type Buckets struct {
	Users          string
	Content        string
	UsersBaseURL   string
	ContentBaseURL string
}

type Store struct {
	client  ObjectPutter
	buckets Buckets
	log     logging.Logger
}

func NewStore(client ObjectPutter, buckets Buckets, log logging.Logger) *Store {
	return &Store{client: client, buckets: buckets, log: log.With("module", "media")}
}

// NewS3Store builds an S3 client from cfg. An empty S3BaseEndpoint leaves
// endpoint resolution to the SDK, which targets AWS.
func NewS3Store(ctx context.Context, cfg *config.Config, log logging.Logger) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewStore(client, Buckets{
		Users:          cfg.S3UsersBucket,
		Content:        cfg.S3ContentBucket,
		UsersBaseURL:   cfg.S3UsersBaseURL,
		ContentBaseURL: cfg.S3ContentBaseURL,
	}, log), nil
}

// StoreAccountPicture writes profile_pictures/<id>_profile_pic.<ext> to the
// users bucket.
func (s *Store) StoreAccountPicture(ctx context.Context, accountID int64, u Upload) (string, error) {
	ext, err := Extension(u.ContentType)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("profile_pictures/%d_profile_pic.%s", accountID, ext)
	return s.put(ctx, s.buckets.Users, s.buckets.UsersBaseURL, key, u)
}

// StoreProjectPicture writes projects/<id>_<slot>_arrang_pic.<ext> to the
// content bucket.
func (s *Store) StoreProjectPicture(ctx context.Context, projectID int64, slot string, u Upload) (string, error) {
	if !ValidSlot(slot) {
		return "", fmt.Errorf("%w: invalid picture slot %q", common.ErrorValidation, slot)
	}
	ext, err := Extension(u.ContentType)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("projects/%d_%s_arrang_pic.%s", projectID, slot, ext)
	return s.put(ctx, s.buckets.Content, s.buckets.ContentBaseURL, key, u)
}

func (s *Store) put(ctx context.Context, bucket, baseURL, key string, u Upload) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        u.Body,
		ContentType: aws.String(u.ContentType),
		ACL:         types.ObjectCannedACLPublicRead,
	}
	if u.Size > 0 {
		in.ContentLength = aws.Int64(u.Size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		s.log.Error(ctx, "put object failed", "bucket", bucket, "key", key, "error", err)
		return "", fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}

	s.log.Info(ctx, "object stored", "bucket", bucket, "key", key)
	return strings.TrimSuffix(baseURL, "/") + "/" + key, nil
}

var slotPattern = regexp.MustCompile(`^file[A-Za-z0-9_-]{0,60}$`)

// ValidSlot reports whether slot names a project picture slot: "file"
// followed by up to 60 letters, digits, '_' or '-'.
func ValidSlot(slot string) bool {
	return slotPattern.MatchString(slot)
}

// Extension returns the media subtype of an image content type
// ("image/png" -> "png"). Anything that is not an image is rejected.
func Extension(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: content type %q", common.ErrorValidation, contentType)
	}
	sub, ok := strings.CutPrefix(mediaType, "image/")
	if !ok || sub == "" || strings.ContainsAny(sub, "/") {
		return "", fmt.Errorf("%w: %q is not an image", common.ErrorValidation, contentType)
	}
	return sub, nil
}
