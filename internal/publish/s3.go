package publish

import (
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/redhat-openshift-ecosystem/covreport/internal/config"
)

const markdownContentType = "text/markdown; charset=utf-8"

// S3Uploader stores the Markdown report in a bucket.
type S3Uploader struct {
	cfg      *config.Storage
	uploader s3manageriface.UploaderAPI
}

// NewS3Uploader creates the uploader with a session for the configured region.
// Credentials come from the default AWS provider chain.
func NewS3Uploader(cfg *config.Storage) (*S3Uploader, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create AWS session")
	}
	return &S3Uploader{cfg: cfg, uploader: s3manager.NewUploader(sess)}, nil
}

// Upload sends the file to s3://<bucket>/<key>, tagging it with metadata.
// With dryRun the object URI is only logged.
func (u *S3Uploader) Upload(path string, meta map[string]string, dryRun bool) (string, error) {
	objectURI := "s3://" + u.cfg.Bucket + "/" + u.cfg.Key
	if dryRun {
		log.Warnf("DRY-RUN mode: skipping upload to %s", objectURI)
		return objectURI, nil
	}

	log.Debugf("Upload(): opening file %s", path)
	fd, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open file %s", path)
	}
	defer fd.Close()

	_, err = u.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(u.cfg.Key),
		ContentType: aws.String(markdownContentType),
		Metadata:    aws.StringMap(meta),
		Body:        fd,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload file %s to bucket %s", filepath.Base(path), u.cfg.Bucket)
	}
	log.Info("Report published successfully to ", objectURI)
	return objectURI, nil
}
