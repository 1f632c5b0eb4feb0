package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/packager"
)

const selectorPublish = "publish"

// PublishConfig is the publish job's configuration slice.
type PublishConfig struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	UsePathStyle    bool   `json:"usePathStyle"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	DryRun          bool   `json:"dryRun"`
}

// ObjectPutter uploads a single object.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// newObjectPutter is replaced in tests.
var newObjectPutter = NewS3Client

// NewS3Client builds an S3 client. Static credentials are used when both keys
// are set, the default credential chain otherwise.
func NewS3Client(ctx context.Context, cfg PublishConfig) (ObjectPutter, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("publish: load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func publishJob() hooks.JobMetadata {
	return hooks.JobMetadata{
		Selector:    selectorPublish,
		Schema:      schema("publish.json"),
		Description: "Upload bundles and package.json to S3 after each entry point is emitted",
		Hooks: hooks.HooksConfig{
			hooks.PackageEmit: {After: hooks.Handler(publishEntry)},
		},
	}
}

func publishEntry(ctx context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	var cfg PublishConfig
	if err := tc.DecodeJobArgs(selectorPublish, &cfg); err != nil {
		return nil, err
	}
	log := tc.Logger()
	if tc.Global().Watch {
		log.Debug("Skipping publish in watch mode")
		return nil, nil
	}
	pkg, ep, err := entryOf(tc)
	if err != nil {
		return nil, err
	}

	var files []string
	if ep.BundlePath != "" {
		files = append(files, filepath.Join(ep.DestDir, ep.BundlePath))
	}
	if ep.PackageJSON != "" {
		files = append(files, ep.PackageJSON)
	}
	if len(files) == 0 {
		return nil, nil
	}

	if cfg.DryRun || tc.TaskArg("dry") != "" {
		for _, f := range files {
			log.Info("Would publish", slog.String("key", ObjectKey(cfg.Prefix, ep.ModuleID, pkg.Version, filepath.Base(f))), logfields.File(f))
		}
		return nil, nil
	}

	client, err := newObjectPutter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		key := ObjectKey(cfg.Prefix, ep.ModuleID, pkg.Version, filepath.Base(f))
		if err := putFile(ctx, client, cfg.Bucket, key, f); err != nil {
			return nil, fmt.Errorf("publish %s to s3://%s/%s: %w", filepath.Base(f), cfg.Bucket, key, err)
		}
		log.Info("Published", slog.String("key", key), logfields.Version(pkg.Version))
	}
	return nil, nil
}

// ObjectKey places a file under <prefix>/<module>/<version>/. Scope markers
// are dropped from the module ID.
func ObjectKey(prefix, moduleID, version, name string) string {
	return path.Join(strings.Trim(prefix, "/"), strings.TrimPrefix(moduleID, "@"), version, name)
}

func putFile(ctx context.Context, client ObjectPutter, bucket, key, file string) error {
	f, err := os.Open(file) // #nosec G304 -- packager output
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	stat, err := f.Stat()
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String(contentType(key)),
	})
	return err
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, packager.PackageJSONFile):
		return "application/json"
	case strings.HasSuffix(key, ".tar.zst"):
		return "application/zstd"
	case strings.HasSuffix(key, ".tar.xz"):
		return "application/x-xz"
	case strings.HasSuffix(key, ".tgz"):
		return "application/gzip"
	}
	return "application/octet-stream"
}
