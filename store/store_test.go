package store

import (
	"encoding/base64"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnishMulay/filexfer/protocol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(StoreConfig{
		Root:   filepath.Join(t.TempDir(), "files"),
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	return s
}

func b64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestNewStoreCreatesRoot(t *testing.T) {
	s := newTestStore(t)

	info, err := os.Stat(s.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, filepath.IsAbs(s.Root()))
}

func TestListEmpty(t *testing.T) {
	s := newTestStore(t)

	res := s.List(nil)
	assert.Equal(t, protocol.StatusOK, res.Status)
	assert.Equal(t, protocol.FileList{}, res.Payload)
}

func TestListOnlyRegularFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "b.txt"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "noext"), []byte("n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "subdir"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(s.Root(), "a.txt"), filepath.Join(s.Root(), "link")))

	res := s.List(nil)
	assert.Equal(t, protocol.FileList{"a.txt", "b.txt", "noext"}, res.Payload)
	assert.Equal(t, res, s.List(nil))
}

func TestAddGetRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"hello", []byte("hello")},
		{"empty", []byte{}},
		{"terminator bytes", []byte("a\r\n\r\nb\r\n\r\n")},
		{"binary", []byte{0x00, 0xff, 0x10, 0x80, 0x0d, 0x0a}},
	}

	s := newTestStore(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := tt.name + ".bin"
			res := s.Add([]string{name, b64(tt.content)})
			require.Equal(t, protocol.StatusOK, res.Status, res.Text())

			res = s.Get([]string{name})
			require.Equal(t, protocol.StatusOK, res.Status)
			fc, ok := res.Payload.(protocol.FileContent)
			require.True(t, ok)
			assert.Equal(t, name, fc.Name)
			assert.Equal(t, len(tt.content), len(fc.Content))
			if len(tt.content) > 0 {
				assert.Equal(t, tt.content, fc.Content)
			}
		})
	}
}

func TestAddReportsSize(t *testing.T) {
	s := newTestStore(t)

	res := s.Add([]string{"test.txt", "aGVsbG8="})
	assert.Equal(t, protocol.StatusOK, res.Status)
	assert.Contains(t, res.Text(), "test.txt")
	assert.Contains(t, res.Text(), "(5 bytes)")
}

func TestAddOverwrites(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, protocol.StatusOK, s.Add([]string{"f.txt", b64([]byte("first version"))}).Status)
	require.Equal(t, protocol.StatusOK, s.Add([]string{"f.txt", b64([]byte("v2"))}).Status)

	data, err := os.ReadFile(filepath.Join(s.Root(), "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestAddErrors(t *testing.T) {
	s := newTestStore(t)
	s.MaxFileSize = 4

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no args", nil, "Incomplete parameters"},
		{"no content", []string{"a.txt"}, "Incomplete parameters"},
		{"bad base64", []string{"a.txt", "not*base64"}, "Base64 decoding error: "},
		{"too large", []string{"a.txt", b64([]byte("hello"))}, "exceeds maximum size of 4 bytes"},
		{"traversal", []string{"../escape.txt", "aGk="}, "Invalid filename"},
		{"absolute", []string{"/etc/passwd", "aGk="}, "Invalid filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Add(tt.args)
			assert.Equal(t, protocol.StatusError, res.Status)
			assert.Contains(t, res.Text(), tt.want)
		})
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(s.Root()), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestAddReplacesSymlink(t *testing.T) {
	s := newTestStore(t)
	outside := filepath.Join(t.TempDir(), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("original"), 0644))
	link := filepath.Join(s.Root(), "link.txt")
	require.NoError(t, os.Symlink(outside, link))

	res := s.Add([]string{"link.txt", b64([]byte("new content"))})
	require.Equal(t, protocol.StatusOK, res.Status, res.Text())

	got, err := os.ReadFile(outside)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	res = s.Get([]string{"link.txt"})
	assert.Equal(t, protocol.OK(protocol.FileContent{Name: "link.txt", Content: []byte("new content")}), res)
}

func TestAddOverDirectory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "dir"), 0755))

	res := s.Add([]string{"dir", b64([]byte("x"))})
	assert.Equal(t, protocol.StatusError, res.Status)

	info, err := os.Lstat(filepath.Join(s.Root(), "dir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestAddLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	s.FileMode = 0640

	res := s.Add([]string{"a.txt", b64([]byte("hello"))})
	require.Equal(t, protocol.StatusOK, res.Status, res.Text())

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name())

	info, err := os.Stat(filepath.Join(s.Root(), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestGetErrors(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "dir"), 0755))

	res := s.Get(nil)
	assert.Equal(t, protocol.StatusError, res.Status)
	assert.Equal(t, "No filename provided", res.Text())

	// "GET  name" parses to an empty first argument
	res = s.Get([]string{"", "name"})
	assert.Equal(t, protocol.Errorf("No filename provided"), res)

	res = s.Get([]string{"missing.txt"})
	assert.Equal(t, protocol.Errorf("File missing.txt not found"), res)

	res = s.Get([]string{"dir"})
	assert.Equal(t, protocol.Errorf("File dir not found"), res)

	res = s.Get([]string{".."})
	assert.Equal(t, protocol.StatusError, res.Status)
	assert.Contains(t, res.Text(), "Invalid filename")
}

func TestDeleteVisibility(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, protocol.StatusOK, s.Add([]string{"f.bin", b64([]byte{1, 2, 3})}).Status)

	res := s.Delete([]string{"f.bin"})
	assert.Equal(t, protocol.StatusOK, res.Status)
	assert.Equal(t, "File f.bin deleted", res.Text())

	assert.NotContains(t, s.List(nil).Payload, "f.bin")
	assert.Equal(t, protocol.Errorf("File f.bin not found"), s.Get([]string{"f.bin"}))
}

func TestDeleteErrors(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, protocol.Errorf("No filename provided"), s.Delete([]string{}))
	assert.Equal(t, protocol.Errorf("File nope.txt not found"), s.Delete([]string{"nope.txt"}))

	res := s.Delete([]string{"a/b"})
	assert.Equal(t, protocol.StatusError, res.Status)
	assert.Contains(t, res.Text(), "path separators not allowed")
}

func TestResolve(t *testing.T) {
	root := t.TempDir()

	p, err := resolve(root, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "report.pdf"), p)

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`, "/abs", "nul\x00"} {
		_, err := resolve(root, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}
