package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MShaffar19/webbundle/internal/cryptoutil"
	"github.com/MShaffar19/webbundle/internal/log"
	"github.com/MShaffar19/webbundle/internal/xerrors"
)

// ParamGetter is the SSM call used to resolve the current digest.
type ParamGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ObjectGetter is the S3 call used to download archives and signatures.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ArchiveVerifier checks a detached signature over archive bytes.
type ArchiveVerifier interface {
	VerifyArchive(ctx context.Context, archive, signature []byte) error
}

// Metrics is implemented by the metrics package.
type Metrics interface {
	ObserveSourceLoad(seconds float64)
	IncSourceError(stage string)
	SetSourceArchive(sha256 string, loadedAt time.Time)
}

type Options struct {
	Logger  log.Logger
	Metrics Metrics

	// SSMParam names the parameter holding the archive's hex SHA-256.
	SSMParam string

	// Archives live at s3://{S3Bucket}/{S3Prefix}/{sha256}.tar.gz.
	S3Bucket string
	S3Prefix string

	// ExtractDir is the parent of the per-digest directory. Empty means a
	// fresh temporary directory.
	ExtractDir string

	// Verifier, when set, requires {sha256}.tar.gz.sig next to the archive.
	Verifier ArchiveVerifier

	Limits Limits
}

// Result describes an extracted archive.
type Result struct {
	Dir      string
	SHA256   string
	Files    int
	LoadedAt time.Time
}

type Loader struct {
	opts   Options
	ssm    ParamGetter
	s3     ObjectGetter
	logger log.Logger
	m      Metrics
}

// New builds a Loader with SSM and S3 clients from the default AWS config
// chain. When opts.Verifier is nil and signingKeyARN is set, a KMS verifier
// for that key is created from the same config.
func New(ctx context.Context, opts Options, signingKeyARN string) (*Loader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "load AWS config")
	}
	if opts.Verifier == nil && signingKeyARN != "" {
		opts.Verifier = cryptoutil.NewKMSVerifier(kms.NewFromConfig(awsCfg), signingKeyARN)
	}
	return NewWithClients(opts, ssm.NewFromConfig(awsCfg), s3.NewFromConfig(awsCfg))
}

// NewWithClients builds a Loader around caller-supplied clients.
func NewWithClients(opts Options, ssmClient ParamGetter, s3Client ObjectGetter) (*Loader, error) {
	var errs []error
	if opts.SSMParam == "" {
		errs = append(errs, errors.New("SSMParam is required"))
	}
	if opts.S3Bucket == "" {
		errs = append(errs, errors.New("S3Bucket is required"))
	}
	if ssmClient == nil || s3Client == nil {
		errs = append(errs, errors.New("ssm and s3 clients are required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, xerrors.EnsureTrace(err)
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &Loader{
		opts:   opts,
		ssm:    ssmClient,
		s3:     s3Client,
		logger: opts.Logger,
		m:      opts.Metrics,
	}, nil
}

// CurrentHash reads the digest of the current archive from SSM.
func (l *Loader) CurrentHash(ctx context.Context) (string, error) {
	out, err := l.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(l.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", l.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", l.opts.SSMParam)
	}
	hash := strings.ToLower(strings.TrimSpace(*out.Parameter.Value))
	if !isHexSHA256(hash) {
		return "", xerrors.Newf("SSM parameter %s does not hold a sha256 (got %q)", l.opts.SSMParam, hash)
	}
	return hash, nil
}

func (l *Loader) archiveKey(hash string) string {
	if p := strings.Trim(l.opts.S3Prefix, "/"); p != "" {
		return p + "/" + hash + ".tar.gz"
	}
	return hash + ".tar.gz"
}

// Fetch downloads the archive for hash and checks its digest and, when a
// verifier is configured, its signature.
func (l *Loader) Fetch(ctx context.Context, hash string) ([]byte, error) {
	lim := l.opts.Limits.withDefaults()
	key := l.archiveKey(hash)

	l.logger.Info(ctx, "downloading content archive", "bucket", l.opts.S3Bucket, "key", key)
	archive, err := l.getObject(ctx, key, lim.MaxArchiveBytes)
	if err != nil {
		l.m.IncSourceError("download")
		return nil, err
	}

	if actual := cryptoutil.SHA256Hex(archive); !cryptoutil.HashEqual(actual, hash) {
		l.m.IncSourceError("checksum")
		return nil, xerrors.Newf("checksum mismatch for %s: expected %s, got %s", key, hash, actual)
	}

	if l.opts.Verifier != nil {
		sig, err := l.getObject(ctx, key+".sig", 64<<10)
		if err != nil {
			l.m.IncSourceError("signature")
			return nil, xerrors.Wrap(err, "fetch archive signature")
		}
		if err := l.opts.Verifier.VerifyArchive(ctx, archive, sig); err != nil {
			l.m.IncSourceError("signature")
			return nil, xerrors.Wrapf(err, "verify signature of %s", key)
		}
		l.logger.Info(ctx, "content archive signature verified", "key", key)
	}
	return archive, nil
}

func (l *Loader) getObject(ctx context.Context, key string, max int64) ([]byte, error) {
	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get S3 object s3://%s/%s", l.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	data, err := readLimited(out.Body, max)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read s3://%s/%s", l.opts.S3Bucket, key)
	}
	return data, nil
}

// Load resolves the current digest, fetches and verifies its archive, and
// extracts it. The returned directory is ready for bundling.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	ctx, span := otel.Tracer("webbundle/source").Start(ctx, "source.load")
	defer span.End()

	start := time.Now()
	res, err := l.load(ctx)
	l.m.ObserveSourceLoad(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(
		attribute.String("source.sha256", res.SHA256),
		attribute.Int("source.files", res.Files),
	)
	l.m.SetSourceArchive(res.SHA256, res.LoadedAt)
	return res, nil
}

func (l *Loader) load(ctx context.Context) (Result, error) {
	hash, err := l.CurrentHash(ctx)
	if err != nil {
		l.m.IncSourceError("resolve")
		return Result{}, err
	}
	archive, err := l.Fetch(ctx, hash)
	if err != nil {
		return Result{}, err
	}

	dir, err := l.extractDir(hash)
	if err != nil {
		l.m.IncSourceError("extract")
		return Result{}, err
	}
	files, err := extractTarGz(archive, dir, l.opts.Limits)
	if err != nil {
		_ = os.RemoveAll(dir)
		l.m.IncSourceError("extract")
		return Result{}, xerrors.Wrap(err, "extract archive")
	}

	l.logger.Info(ctx, "extracted content archive", "sha256", hash, "dir", dir, "files", files)
	return Result{Dir: dir, SHA256: hash, Files: files, LoadedAt: time.Now().UTC()}, nil
}

func (l *Loader) extractDir(hash string) (string, error) {
	if l.opts.ExtractDir == "" {
		dir, err := os.MkdirTemp("", "webbundle-"+hash[:12]+"-*")
		if err != nil {
			return "", xerrors.Wrap(err, "create extract dir")
		}
		return dir, nil
	}
	dir := filepath.Join(l.opts.ExtractDir, hash)
	// a previous partial extraction must not leak files into this one
	if err := os.RemoveAll(dir); err != nil {
		return "", xerrors.Wrapf(err, "clear extract dir %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", xerrors.Wrapf(err, "create extract dir %s", dir)
	}
	return dir, nil
}

func isHexSHA256(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

type nopMetrics struct{}

func (nopMetrics) ObserveSourceLoad(float64)          {}
func (nopMetrics) IncSourceError(string)              {}
func (nopMetrics) SetSourceArchive(string, time.Time) {}
