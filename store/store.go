package store

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AnishMulay/filexfer/protocol"
)

const DefaultFileMode os.FileMode = 0644

// tempPrefix marks uploads in progress. Such files are never listed.
const tempPrefix = ".filexfer-upload-"

type StoreConfig struct {
	// Root is the directory all files live in. It is created if missing.
	Root string
	// FileMode is applied to files written by Add.
	FileMode os.FileMode
	// MaxFileSize limits the decoded size of an Add. Zero means no limit.
	MaxFileSize int64
	Logger      *log.Logger
}

// Store performs the file operations against a single flat directory.
// Nothing is cached: every call looks at the filesystem.
type Store struct {
	StoreConfig
	root string
}

func NewStore(opts StoreConfig) (*Store, error) {
	if opts.Root == "" {
		return nil, errors.New("store root is required")
	}
	if opts.FileMode == 0 {
		opts.FileMode = DefaultFileMode
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}

	return &Store{
		StoreConfig: opts,
		root:        root,
	}, nil
}

// Root returns the absolute storage directory.
func (s *Store) Root() string {
	return s.root
}

// List returns the names of the regular files directly in the root,
// sorted.
func (s *Store) List(args []string) protocol.Result {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.Logger.Printf("[store]: Failed to list files: %v", err)
		return protocol.Errorf("%v", err)
	}

	names := make(protocol.FileList, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), tempPrefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	return protocol.OK(names)
}

// Get reads a whole file.
func (s *Store) Get(args []string) protocol.Result {
	if len(args) == 0 || args[0] == "" {
		s.Logger.Println("[store]: GET missing filename")
		return protocol.Errorf("No filename provided")
	}
	name := args[0]

	path, err := resolve(s.root, name)
	if err != nil {
		return protocol.Errorf("Invalid filename %s: %v", name, err)
	}
	if !s.isRegular(path) {
		s.Logger.Printf("[store]: File %s does not exist", name)
		return protocol.Errorf("File %s not found", name)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		s.Logger.Printf("[store]: Failed to read %s: %v", name, err)
		return protocol.Errorf("%v", err)
	}

	s.Logger.Printf("[store]: Serving %s (%d bytes)", name, len(content))
	return protocol.OK(protocol.FileContent{Name: name, Content: content})
}

// Add decodes base64 content and writes it to a file, replacing any
// existing one. The file appears under its name only once fully written.
func (s *Store) Add(args []string) protocol.Result {
	if len(args) < 2 || args[0] == "" {
		return protocol.Errorf("Incomplete parameters")
	}
	name, encoded := args[0], args[1]

	path, err := resolve(s.root, name)
	if err != nil {
		return protocol.Errorf("Invalid filename %s: %v", name, err)
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.Logger.Printf("[store]: Failed to decode content for %s: %v", name, err)
		return protocol.Errorf("Base64 decoding error: %v", err)
	}
	if s.MaxFileSize > 0 && int64(len(content)) > s.MaxFileSize {
		return protocol.Errorf("File %s exceeds maximum size of %d bytes", name, s.MaxFileSize)
	}

	if err := s.write(path, content); err != nil {
		s.Logger.Printf("[store]: Failed to write %s: %v", name, err)
		return protocol.Errorf("%v", err)
	}

	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		s.Logger.Printf("[store]: File %s missing after write", name)
		return protocol.Errorf("File %s could not be written", name)
	}

	s.Logger.Printf("[store]: Wrote %d bytes to %s", info.Size(), name)
	return protocol.OK(protocol.Message(fmt.Sprintf("File %s uploaded (%d bytes)", name, info.Size())))
}

// Delete removes a file.
func (s *Store) Delete(args []string) protocol.Result {
	if len(args) == 0 || args[0] == "" {
		return protocol.Errorf("No filename provided")
	}
	name := args[0]

	path, err := resolve(s.root, name)
	if err != nil {
		return protocol.Errorf("Invalid filename %s: %v", name, err)
	}
	if !s.isRegular(path) {
		return protocol.Errorf("File %s not found", name)
	}

	if err := os.Remove(path); err != nil {
		s.Logger.Printf("[store]: Failed to delete %s: %v", name, err)
		return protocol.Errorf("%v", err)
	}

	if _, err := os.Lstat(path); !errors.Is(err, fs.ErrNotExist) {
		s.Logger.Printf("[store]: File %s still present after delete", name)
		return protocol.Errorf("File %s could not be deleted", name)
	}

	s.Logger.Printf("[store]: Deleted %s", name)
	return protocol.OK(protocol.Message(fmt.Sprintf("File %s deleted", name)))
}

// write puts content in a temporary file inside the root and renames it
// over path. The rename replaces whatever entry path names, so an existing
// symlink is swapped out rather than written through.
func (s *Store) write(path string, content []byte) error {
	if info, err := os.Lstat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", filepath.Base(path))
	}

	f, err := os.CreateTemp(s.root, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(s.FileMode); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) isRegular(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}
