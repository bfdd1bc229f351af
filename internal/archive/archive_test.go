package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	key  string
	body []byte
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = *params.Key
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_UploadsUnderJobPrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte("Customer Id,Email\nC001,a@x.com\n"), 0o644))

	fake := &fakeS3{}
	a := NewS3ArchiverWithClient(fake, "import-archive")

	err := a.Archive(context.Background(), "job-1", path)
	require.NoError(t, err)
	assert.Equal(t, "imports/job-1/customers.csv", fake.key)
	assert.Contains(t, string(fake.body), "C001")
}

func TestS3Archiver_MissingFileReturnsError(t *testing.T) {
	a := NewS3ArchiverWithClient(&fakeS3{}, "import-archive")
	err := a.Archive(context.Background(), "job-1", "/nonexistent/customers.csv")
	assert.Error(t, err)
}

func TestS3Archiver_UploadFailureSurfaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	a := NewS3ArchiverWithClient(&fakeS3{err: errors.New("access denied")}, "import-archive")
	err := a.Archive(context.Background(), "job-1", path)
	assert.Error(t, err)
}

func TestNoop_AlwaysNil(t *testing.T) {
	assert.NoError(t, Noop{}.Archive(context.Background(), "job-1", "/anything"))
}
