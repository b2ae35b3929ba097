package tokenstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"verzek/cmd/security/token"
)

const (
	fileFormatVersion = 1
	fileSaltBytes     = 16
	fileAAD           = "verzek.tokenstore.file.v1"
)

// fileEnvelope is the on-disk format. Salt and Data are base64 via encoding/json.
type fileEnvelope struct {
	Version int    `json:"v"`
	Salt    []byte `json:"salt"`
	Data    []byte `json:"data"`
}

// FileStore keeps the sealed pair in a single file, readable only by the owner.
type FileStore struct {
	path   string
	secret []byte
	kdf    token.KDFParams

	mu     sync.Mutex
	salt   []byte
	sealer sealer
}

// NewFileStore opens (or prepares) a sealed token file at path.
// The salt of an existing file is reused so previously stored tokens stay readable.
func NewFileStore(path string, secret []byte, kdf token.KDFParams) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("token file path is required")
	}
	if len(secret) == 0 {
		return nil, token.ErrKeyMissing
	}

	s := &FileStore{
		path:   path,
		secret: append([]byte(nil), secret...),
		kdf:    kdf,
	}

	env, err := s.readEnvelope()
	switch {
	case err == nil && len(env.Salt) > 0:
		s.useSalt(env.Salt)
	case err == nil, errors.Is(err, ErrNotFound):
		salt, err := token.NewSalt(fileSaltBytes)
		if err != nil {
			return nil, fmt.Errorf("token file salt: %w", err)
		}
		s.useSalt(salt)
	default:
		return nil, err
	}

	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) Save(_ context.Context, p Pair) error {
	if !p.Complete() {
		return ErrInvalidPair
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(p)
}

func (s *FileStore) SetAccess(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadLocked()
	if errors.Is(err, ErrNotFound) {
		return ErrNoTokens
	}
	if err != nil {
		return err
	}

	p.AccessToken = access
	if !p.Complete() {
		return ErrInvalidPair
	}
	return s.persistLocked(p)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *FileStore) useSalt(salt []byte) {
	s.salt = append([]byte(nil), salt...)
	s.sealer = newSealer(s.secret, s.salt, s.kdf, fileAAD)
}

func (s *FileStore) readEnvelope() (fileEnvelope, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileEnvelope{}, ErrNotFound
		}
		return fileEnvelope{}, fmt.Errorf("read token file: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return fileEnvelope{}, ErrNotFound
	}

	var env fileEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fileEnvelope{}, fmt.Errorf("decode token file: %w", token.ErrSealed)
	}
	if env.Version != fileFormatVersion {
		return fileEnvelope{}, fmt.Errorf("token file version %d: %w", env.Version, token.ErrSealed)
	}
	return env, nil
}

func (s *FileStore) loadLocked() (Pair, error) {
	env, err := s.readEnvelope()
	if err != nil {
		return Pair{}, err
	}
	// The file may have been rewritten by another process with a fresh salt.
	if !bytes.Equal(env.Salt, s.salt) {
		s.useSalt(env.Salt)
	}
	return s.sealer.open(env.Data)
}

func (s *FileStore) persistLocked(p Pair) error {
	data, err := s.sealer.seal(p)
	if err != nil {
		return err
	}
	b, err := json.Marshal(fileEnvelope{Version: fileFormatVersion, Salt: s.salt, Data: data})
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("create token temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod token temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write token temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync token temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
