package pack

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/xiaoqiao/device-tools/pkg/file"
)

// Languages maps firmware language codes to their sdkconfig switches.
var Languages = map[string]string{
	"zh-CN": "CONFIG_LANGUAGE_ZH_CN",
	"zh-TW": "CONFIG_LANGUAGE_ZH_TW",
	"en-US": "CONFIG_LANGUAGE_EN_US",
	"ja-JP": "CONFIG_LANGUAGE_JA_JP",
	"ko-KR": "CONFIG_LANGUAGE_KO_KR",
	"th-TH": "CONFIG_LANGUAGE_TH_TH",
	"vi-VN": "CONFIG_LANGUAGE_VI_VN",
}

// LanguageCodes returns the supported codes in a stable order.
func LanguageCodes() []string {
	codes := make([]string, 0, len(Languages))
	for code := range Languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

var projectVersionPattern = regexp.MustCompile(`set\(PROJECT_VER\s+"([^"]+)"\)`)

// Packager builds the firmware once per language and archives the renamed
// binaries. The per-language rewrite touches only the CONFIG_LANGUAGE_* lines
// of sdkconfig, leaving the rest of the file untouched.
type Packager struct {
	ProjectRoot string
	ArchiveDir  string
	BuildArgs   []string // build command, default "idf.py build"
	OutputName  string   // binary under build/, default "xiaozhi.bin"

	fileClient file.FileOperations
	logger     zerolog.Logger
}

// NewPackager initializes a Packager rooted at the firmware checkout.
func NewPackager(projectRoot, archiveDir string, fileClient file.FileOperations, logger zerolog.Logger) *Packager {
	return &Packager{
		ProjectRoot: projectRoot,
		ArchiveDir:  archiveDir,
		BuildArgs:   []string{"idf.py", "build"},
		OutputName:  "xiaozhi.bin",
		fileClient:  fileClient,
		logger:      logger,
	}
}

// ProjectVersion reads and validates PROJECT_VER from CMakeLists.txt.
func (p *Packager) ProjectVersion() (string, error) {
	content, err := p.fileClient.ReadFile(filepath.Join(p.ProjectRoot, "CMakeLists.txt"))
	if err != nil {
		return "", fmt.Errorf("failed to read CMakeLists.txt: %w", err)
	}

	match := projectVersionPattern.FindStringSubmatch(content)
	if match == nil {
		return "", fmt.Errorf("PROJECT_VER not found in CMakeLists.txt")
	}

	version := match[1]
	if _, err := semver.NewVersion(version); err != nil {
		return "", fmt.Errorf("PROJECT_VER %q is not a valid version: %w", version, err)
	}
	return version, nil
}

// SetLanguage rewrites sdkconfig so exactly one language switch is enabled.
func (p *Packager) SetLanguage(code string) error {
	target, ok := Languages[code]
	if !ok {
		return fmt.Errorf("unsupported language %q", code)
	}

	path := filepath.Join(p.ProjectRoot, "sdkconfig")
	content, err := p.fileClient.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read sdkconfig: %w", err)
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		for _, config := range Languages {
			if !strings.Contains(line, config) {
				continue
			}
			if config == target {
				lines[i] = config + "=y"
			} else {
				lines[i] = "# " + config + " is not set"
			}
			break
		}
	}

	return p.fileClient.WriteFile(path, strings.Join(lines, "\n"))
}

// Build runs the firmware build command in the project root.
func (p *Packager) Build(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, p.BuildArgs[0], p.BuildArgs[1:]...)
	cmd.Dir = p.ProjectRoot

	output, err := cmd.CombinedOutput()
	if err != nil {
		p.logger.Error().Err(err).Str("output", string(output)).Msg("Firmware build failed")
		return fmt.Errorf("firmware build failed: %w", err)
	}
	return nil
}

// Archive copies the built binary into the archive directory under its
// versioned, language-tagged name and returns the destination path.
func (p *Packager) Archive(version, code string) (string, error) {
	src := filepath.Join(p.ProjectRoot, "build", p.OutputName)
	exists, err := p.fileClient.IsFileExists(src)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("build output %s not found", src)
	}

	if err := os.MkdirAll(p.ArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := strings.TrimSuffix(p.OutputName, filepath.Ext(p.OutputName))
	dst := filepath.Join(p.ArchiveDir, fmt.Sprintf("%s_%s_%s.bin", base, version, code))
	if err := p.fileClient.CopyFile(src, dst); err != nil {
		return "", fmt.Errorf("failed to archive firmware: %w", err)
	}
	return dst, nil
}

// PackAll builds and archives every requested language in order. With dryRun
// set the build step is skipped, which exercises only the config rewrite and
// archive naming.
func (p *Packager) PackAll(ctx context.Context, codes []string, dryRun bool) error {
	version, err := p.ProjectVersion()
	if err != nil {
		return err
	}

	for _, code := range codes {
		p.logger.Info().Str("language", code).Str("version", version).Msg("Packaging firmware")

		if err := p.SetLanguage(code); err != nil {
			return err
		}
		if dryRun {
			continue
		}
		if err := p.Build(ctx); err != nil {
			return err
		}

		dst, err := p.Archive(version, code)
		if err != nil {
			return err
		}
		p.logger.Info().Str("archive", dst).Msg("Firmware archived")
	}
	return nil
}
