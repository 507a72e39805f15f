//go:build cgo

package embeddings

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/adanalyst/internal/logging"
)

// DefaultONNXRuntimeVersion is the ONNX runtime release fetched when no
// library is installed. It must match the runtime fastembed-go links against.
const DefaultONNXRuntimeVersion = "1.23.0"

// ONNXPathEnv overrides the managed runtime location.
const ONNXPathEnv = "ONNX_PATH"

// ErrUnsupportedPlatform indicates no runtime release exists for this OS/arch.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

var platformArchMap = map[string]map[string]string{
	"linux": {
		"amd64": "linux-x64",
		"arm64": "linux-aarch64",
	},
	"darwin": {
		"amd64": "osx-x86_64",
		"arm64": "osx-arm64",
	},
}

var libraryNames = map[string]string{
	"linux":  "libonnxruntime.so",
	"darwin": "libonnxruntime.dylib",
}

func platformArchive(goos, goarch string) (string, error) {
	if arch, ok := platformArchMap[goos][goarch]; ok {
		return arch, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
}

func libraryName(goos string) string {
	if name, ok := libraryNames[goos]; ok {
		return name
	}
	return "libonnxruntime.so"
}

// onnxInstallDir is ~/.config/adanalyst/lib.
func onnxInstallDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "adanalyst", "lib")
}

// ONNXLibraryPath returns the runtime library to load, or "" when none is
// installed. ONNX_PATH wins over the managed install.
func ONNXLibraryPath() string {
	if p := os.Getenv(ONNXPathEnv); p != "" {
		return p
	}
	managed := filepath.Join(onnxInstallDir(), libraryName(runtime.GOOS))
	if _, err := os.Stat(managed); err == nil {
		return managed
	}
	return ""
}

const onnxReleaseURL = "https://github.com/microsoft/onnxruntime/releases/download/v%s/onnxruntime-%s-%s.tgz"

func downloadURL(version, platform string) string {
	return fmt.Sprintf(onnxReleaseURL, version, platform, version)
}

// DownloadONNXRuntime installs the runtime for this platform into the managed
// directory. An empty version means DefaultONNXRuntimeVersion.
func DownloadONNXRuntime(ctx context.Context, version string) error {
	if version == "" {
		version = DefaultONNXRuntimeVersion
	}
	return downloadONNXRuntimeTo(ctx, http.DefaultClient, version, onnxInstallDir())
}

func downloadONNXRuntimeTo(ctx context.Context, client *http.Client, version, destDir string) error {
	platform, err := platformArchive(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL(version, platform), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading ONNX runtime: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	if err := extractTarGz(resp.Body, destDir, version, platform, libraryName(runtime.GOOS)); err != nil {
		return fmt.Errorf("extracting archive: %w", err)
	}
	return nil
}

// extractTarGz copies the lib/ directory of a runtime release into destDir,
// symlinks included. It fails if libName is not among the extracted files.
func extractTarGz(r io.Reader, destDir, version, platform, libName string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	prefix := fmt.Sprintf("onnxruntime-%s-%s/lib/", platform, version)
	found := false

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if !strings.HasPrefix(name, prefix) || hdr.Typeflag == tar.TypeDir {
			continue
		}
		filename := filepath.Base(name)
		dest := filepath.Join(destDir, filename)

		if hdr.Typeflag == tar.TypeSymlink {
			_ = os.Remove(dest)
			if err := os.Symlink(hdr.Linkname, dest); err != nil {
				continue
			}
			if filename == libName {
				found = true
			}
			continue
		}

		if err := writeTarFile(tr, dest); err != nil {
			return fmt.Errorf("writing file %s: %w", filename, err)
		}
		if filename == libName || strings.HasPrefix(filename, libName+".") {
			found = true
		}
	}

	if !found {
		return fmt.Errorf("library %s not found in archive", libName)
	}
	return nil
}

func writeTarFile(r io.Reader, dest string) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// setONNXPathEnv points fastembed-go at the library. Tests replace it.
var setONNXPathEnv = func(path string) error {
	return os.Setenv(ONNXPathEnv, path)
}

// downloadRuntime is DownloadONNXRuntime; tests replace it.
var downloadRuntime = DownloadONNXRuntime

// EnsureONNXRuntime locates the runtime, downloading it on first use, and
// exports its path through ONNX_PATH. It returns the library path.
func EnsureONNXRuntime(ctx context.Context, logger *logging.Logger) (string, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	path := ONNXLibraryPath()
	if path == "" {
		logger.Info(ctx, "ONNX runtime not found, downloading",
			zap.String("version", DefaultONNXRuntimeVersion),
			zap.String("platform", runtime.GOOS+"/"+runtime.GOARCH),
			zap.String("dir", onnxInstallDir()))

		if err := downloadRuntime(ctx, ""); err != nil {
			return "", fmt.Errorf("downloading ONNX runtime: %w (set %s to an installed library)", err, ONNXPathEnv)
		}
		if path = ONNXLibraryPath(); path == "" {
			return "", fmt.Errorf("ONNX runtime download completed but library not found in %s", onnxInstallDir())
		}
		logger.Info(ctx, "ONNX runtime installed", zap.String("path", path))
	}

	if err := setONNXPathEnv(path); err != nil {
		return "", fmt.Errorf("setting %s: %w", ONNXPathEnv, err)
	}
	logger.Debug(ctx, "using ONNX runtime", zap.String("path", path))
	return path, nil
}
