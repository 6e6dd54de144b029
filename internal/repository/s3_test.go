package repository

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/authgate/internal/session"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	objects map[string][]byte
	mu      sync.Mutex
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3Repository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := newFakeS3()
	repo := NewS3Repository(fake, "bucket", "")
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, session.Record{Token: "tok", UserID: "user-1", CreatedAt: created}))
	assert.Contains(t, fake.objects, "sessions/tok.json")

	found, err := repo.FindByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-1", found.MustGet().UserID)

	missing, err := repo.FindByToken(ctx, "nope")
	require.NoError(t, err)
	assert.True(t, missing.IsAbsent())

	deleted, err := repo.DeleteByToken(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByToken(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, repo.Ping(ctx))
}

func TestS3Repository_AllSkipsForeignAndCorruptObjects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := newFakeS3()
	repo := NewS3Repository(fake, "bucket", "s/")

	require.NoError(t, repo.Save(ctx, session.Record{Token: "a", UserID: "u1", CreatedAt: time.Now()}))
	require.NoError(t, repo.Save(ctx, session.Record{Token: "b", UserID: "u2", CreatedAt: time.Now()}))
	fake.objects["s/bad.json"] = []byte("{")
	fake.objects["s/readme.txt"] = []byte("hello")
	fake.objects["elsewhere/c.json"] = []byte(`{"session_id":"c","user_id":"u3"}`)

	records, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Token)
	assert.Equal(t, "b", records[1].Token)
}
