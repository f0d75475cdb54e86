package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory S3Client.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	failAll error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (f *fakeS3) PutObject(_ context.Context, bucket, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	return nil
}

func (f *fakeS3) HeadObject(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if _, ok := f.objects[bucket+"/"+key]; !ok {
		return ErrNotFound
	}
	return nil
}

func (f *fakeS3) DeleteObject(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeS3) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if rest, ok := strings.CutPrefix(k, bucket+"/"); ok && strings.HasPrefix(rest, prefix) {
			keys = append(keys, rest)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func setupProviders(t *testing.T) map[string]FileProvider {
	t.Helper()
	gitProvider, err := NewGitFileProvider(context.Background(), GitProviderOptions{
		Path:          filepath.Join(t.TempDir(), "corpus"),
		AuthorName:    "Test User",
		AuthorEmail:   "test@example.com",
		InitIfMissing: true,
	})
	require.NoError(t, err)

	return map[string]FileProvider{
		"local":    NewLocalFileProvider(t.TempDir()),
		"s3":       NewS3FileProvider("bucket", "ward", newFakeS3()),
		"git":      gitProvider,
		"prefixed": NewPrefixedFileProvider(NewLocalFileProvider(t.TempDir()), "knowledge"),
	}
}

func TestFileProviders(t *testing.T) {
	ctx := context.Background()

	for name, p := range setupProviders(t) {
		t.Run(name, func(t *testing.T) {
			_, err := p.Read(ctx, "knowledge_base.json")
			assert.True(t, errors.Is(err, ErrNotFound), "missing file reads as ErrNotFound, got %v", err)

			ok, err := p.Exists(ctx, "knowledge_base.json")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, p.Write(ctx, "knowledge_base.json", []byte(`{"a":[]}`)))
			require.NoError(t, p.Write(ctx, "archive/old.json", []byte(`{}`)))
			require.NoError(t, p.Write(ctx, "knowledge_base.json", []byte(`{"b":[]}`)))

			data, err := p.Read(ctx, "knowledge_base.json")
			require.NoError(t, err)
			assert.Equal(t, `{"b":[]}`, string(data))

			ok, err = p.Exists(ctx, "knowledge_base.json")
			require.NoError(t, err)
			assert.True(t, ok)

			files, err := p.List(ctx, "")
			require.NoError(t, err)
			sort.Strings(files)
			assert.Equal(t, []string{"archive/old.json", "knowledge_base.json"}, files)

			files, err = p.List(ctx, "archive")
			require.NoError(t, err)
			assert.Equal(t, []string{"archive/old.json"}, files)

			require.NoError(t, p.Delete(ctx, "knowledge_base.json"))
			require.NoError(t, p.Delete(ctx, "knowledge_base.json"), "deleting twice is fine")
			ok, err = p.Exists(ctx, "knowledge_base.json")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestS3ExistsPropagatesRealErrors(t *testing.T) {
	client := newFakeS3()
	client.failAll = errors.New("access denied")
	p := NewS3FileProvider("bucket", "", client)

	_, err := p.Exists(context.Background(), "x")
	assert.EqualError(t, err, "access denied")
}

func TestGitProviderCommitsWrites(t *testing.T) {
	path := t.TempDir()
	p, err := NewGitFileProvider(context.Background(), GitProviderOptions{Path: path, InitIfMissing: true})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Write(ctx, "knowledge_base.json", []byte("{}")))
	require.NoError(t, p.Write(ctx, "knowledge_base.json", []byte(`{"x":[]}`)))

	repo, err := git.PlainOpen(path)
	require.NoError(t, err)
	iter, err := repo.Log(&git.LogOptions{})
	require.NoError(t, err)

	var messages []string
	require.NoError(t, iter.ForEach(func(c *object.Commit) error {
		messages = append(messages, c.Message)
		return nil
	}))
	assert.Equal(t, []string{"Update knowledge_base.json", "Update knowledge_base.json"}, messages)
}

func TestGitProviderOpenErrors(t *testing.T) {
	_, err := NewGitFileProvider(context.Background(), GitProviderOptions{})
	assert.Error(t, err)

	_, err = NewGitFileProvider(context.Background(), GitProviderOptions{Path: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestGitProviderBootstrapsEmptyRemote(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available for local transport")
	}
	ctx := context.Background()

	for _, branch := range []string{"", "main"} {
		t.Run("branch "+branch, func(t *testing.T) {
			remote := filepath.Join(t.TempDir(), "remote.git")
			_, err := git.PlainInit(remote, true)
			require.NoError(t, err)

			writer, err := NewGitFileProvider(ctx, GitProviderOptions{
				Path:          t.TempDir(),
				InitIfMissing: true,
				RemoteURL:     remote,
				Branch:        branch,
				PushOnWrite:   true,
			})
			require.NoError(t, err)
			require.NoError(t, writer.Write(ctx, "knowledge_base.json", []byte(`{"areas":[]}`)))

			reader, err := NewGitFileProvider(ctx, GitProviderOptions{
				Path:      filepath.Join(t.TempDir(), "clone"),
				RemoteURL: remote,
				Branch:    branch,
			})
			require.NoError(t, err)

			data, err := reader.Read(ctx, "knowledge_base.json")
			require.NoError(t, err)
			assert.Equal(t, `{"areas":[]}`, string(data))
		})
	}
}

func TestGitProviderEmptyRemoteWithoutInit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available for local transport")
	}
	remote := filepath.Join(t.TempDir(), "remote.git")
	_, err := git.PlainInit(remote, true)
	require.NoError(t, err)

	_, err = NewGitFileProvider(context.Background(), GitProviderOptions{
		Path:      t.TempDir(),
		RemoteURL: remote,
	})
	assert.ErrorContains(t, err, "failed to clone")
}

func TestStorageManager(t *testing.T) {
	ctx := context.Background()

	t.Run("local backend with namespace", func(t *testing.T) {
		dir := t.TempDir()
		m, err := New(ctx, Config{Backend: BackendLocal, LocalConfig: &LocalConfig{BaseDir: dir}})
		require.NoError(t, err)
		assert.Equal(t, BackendLocal, m.Backend())

		require.NoError(t, m.GetProvider("knowledge").Write(ctx, "kb.json", []byte("{}")))
		ok, err := m.GetProvider("").Exists(ctx, "knowledge/kb.json")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("git backend", func(t *testing.T) {
		m, err := New(ctx, Config{Backend: BackendGit, GitConfig: &GitProviderOptions{Path: t.TempDir(), InitIfMissing: true}})
		require.NoError(t, err)
		assert.Equal(t, BackendGit, m.Backend())
	})

	t.Run("invalid configs", func(t *testing.T) {
		for _, cfg := range []Config{
			{Backend: BackendLocal},
			{Backend: BackendS3, S3Config: &S3Config{}},
			{Backend: BackendGit},
			{Backend: "ftp"},
		} {
			_, err := New(ctx, cfg)
			assert.Error(t, err, "backend %q", cfg.Backend)
		}
	})
}
