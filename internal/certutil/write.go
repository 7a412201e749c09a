package certutil

import (
	"os"
	"path/filepath"
	"runtime"
)

// WritePair writes PEM cert/key material under dir with owner-only
// permissions and returns the file paths. Used by the server CLI when it
// auto-generates material.
func WritePair(dir string, certPEM, keyPEM []byte) (certFile string, keyFile string, err error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", err
	}
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := writeFileOwnerOnly(certFile, certPEM, 0o644); err != nil {
		return "", "", err
	}
	if err := writeFileOwnerOnly(keyFile, keyPEM, 0o600); err != nil {
		return "", "", err
	}
	return certFile, keyFile, nil
}

// writeFileOwnerOnly writes via temp file + rename so a crash never leaves a
// half-written key, and re-applies perm because os.WriteFile only sets the
// mode on create.
func writeFileOwnerOnly(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	f, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".tmp.*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	ok := false
	defer func() {
		_ = f.Close()
		if !ok {
			_ = os.Remove(tmp)
		}
	}()
	if runtime.GOOS != "windows" {
		if err := f.Chmod(perm); err != nil {
			return err
		}
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		_ = os.Remove(filename)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(filename, perm); err != nil {
			return err
		}
	}
	ok = true
	return nil
}
