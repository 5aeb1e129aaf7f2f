package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sanguetsu/ikebana/internal/common"
	"github.com/sanguetsu/ikebana/internal/logging"
	"github.com/sanguetsu/ikebana/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var testBuckets = Buckets{
	Users:          "ikebana-app-users",
	Content:        "ikebana-app-content",
	UsersBaseURL:   "https://users.cdn/",
	ContentBaseURL: "https://content.cdn",
}

func TestStoreAccountPicture(t *testing.T) {
	p := &fakePutter{}
	s := NewStore(p, testBuckets, discardLogger())

	url, err := s.StoreAccountPicture(context.Background(), 12, Upload{Body: strings.NewReader("img"), ContentType: "image/png", Size: 3})
	require.NoError(t, err)
	assert.Equal(t, "https://users.cdn/profile_pictures/12_profile_pic.png", url)

	require.Len(t, p.inputs, 1)
	in := p.inputs[0]
	assert.Equal(t, "ikebana-app-users", aws.ToString(in.Bucket))
	assert.Equal(t, "profile_pictures/12_profile_pic.png", aws.ToString(in.Key))
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
	assert.Equal(t, types.ObjectCannedACLPublicRead, in.ACL)
	assert.EqualValues(t, 3, aws.ToInt64(in.ContentLength))
}

func TestStoreProjectPicture(t *testing.T) {
	p := &fakePutter{}
	s := NewStore(p, testBuckets, discardLogger())

	url, err := s.StoreProjectPicture(context.Background(), 4, "file2", Upload{Body: strings.NewReader("x"), ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "https://content.cdn/projects/4_file2_arrang_pic.jpeg", url)
	assert.Equal(t, "ikebana-app-content", aws.ToString(p.inputs[0].Bucket))
	assert.Nil(t, p.inputs[0].ContentLength)
}

func TestStoreProjectPicture_RejectsBadSlot(t *testing.T) {
	p := &fakePutter{}
	s := NewStore(p, testBuckets, discardLogger())

	_, err := s.StoreProjectPicture(context.Background(), 4, "../etc", Upload{ContentType: "image/png"})
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, p.inputs)
}

func TestValidSlot(t *testing.T) {
	tests := []struct {
		slot string
		want bool
	}{
		{"file", true},
		{"file1", true},
		{"file_cover-2", true},
		{"cover", false},
		{"description_file", false},
		{"file/1", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.slot, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidSlot(tc.slot))
		})
	}
}

func TestStoreProjectPicture_RejectsSlotOutsideFilePrefix(t *testing.T) {
	p := &fakePutter{}
	s := NewStore(p, testBuckets, discardLogger())

	_, err := s.StoreProjectPicture(context.Background(), 4, "cover", Upload{Body: strings.NewReader("x"), ContentType: "image/png"})
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, p.inputs)
}

func TestStore_PutError(t *testing.T) {
	p := &fakePutter{err: errors.New("access denied")}
	s := NewStore(p, testBuckets, discardLogger())

	_, err := s.StoreAccountPicture(context.Background(), 1, Upload{ContentType: "image/gif"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorValidation)
	assert.Contains(t, err.Error(), "access denied")
}

func TestExtension(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "image/png", want: "png"},
		{in: "image/jpeg; charset=binary", want: "jpeg"},
		{in: "IMAGE/WEBP", want: "webp"},
		{in: "image/svg+xml", want: "svg+xml"},
		{in: "text/plain", wantErr: true},
		{in: "image/", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Extension(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrorValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewS3Store_Seams(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.S3AccessKey = "minioadmin"
	cfg.S3SecretKey = "minioadmin"
	cfg.S3BaseEndpoint = "http://127.0.0.1:9000"

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "sa-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(c aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	s, err := NewS3Store(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "ikebana-app-content", s.buckets.Content)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Store(context.Background(), cfg, discardLogger())
	assert.EqualError(t, err, "load-fail")
}
