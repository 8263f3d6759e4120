package pack_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaoqiao/device-tools/internal/pack"
	"github.com/xiaoqiao/device-tools/pkg/file"
)

const sampleSdkconfig = `CONFIG_IDF_TARGET="esp32s3"
CONFIG_LANGUAGE_ZH_CN=y
# CONFIG_LANGUAGE_ZH_TW is not set
# CONFIG_LANGUAGE_EN_US is not set
# CONFIG_LANGUAGE_JA_JP is not set
# CONFIG_LANGUAGE_KO_KR is not set
# CONFIG_LANGUAGE_TH_TH is not set
# CONFIG_LANGUAGE_VI_VN is not set
CONFIG_SPIRAM=y
`

func newPackager(t *testing.T, version string) (*pack.Packager, string) {
	t.Helper()

	root := t.TempDir()
	archive := t.TempDir()

	cmake := `cmake_minimum_required(VERSION 3.16)
set(PROJECT_VER "` + version + `")
project(xiaozhi)
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "CMakeLists.txt"), []byte(cmake), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sdkconfig"), []byte(sampleSdkconfig), 0644))

	return pack.NewPackager(root, archive, file.NewFileService(), zerolog.Nop()), root
}

func TestProjectVersion(t *testing.T) {
	p, _ := newPackager(t, "1.4.2")

	version, err := p.ProjectVersion()

	assert.NoError(t, err)
	assert.Equal(t, "1.4.2", version)
}

func TestProjectVersion_InvalidSemver(t *testing.T) {
	p, _ := newPackager(t, "not-a-version")

	_, err := p.ProjectVersion()

	assert.Error(t, err)
}

func TestProjectVersion_MissingDeclaration(t *testing.T) {
	p, root := newPackager(t, "1.0.0")
	require.NoError(t, os.WriteFile(filepath.Join(root, "CMakeLists.txt"), []byte("project(xiaozhi)\n"), 0644))

	_, err := p.ProjectVersion()

	assert.ErrorContains(t, err, "PROJECT_VER")
}

func TestSetLanguage_EnablesExactlyOne(t *testing.T) {
	p, root := newPackager(t, "1.0.0")

	assert.NoError(t, p.SetLanguage("ja-JP"))

	content, err := os.ReadFile(filepath.Join(root, "sdkconfig"))
	require.NoError(t, err)
	lines := strings.Split(string(content), "\n")

	enabled := 0
	for _, line := range lines {
		if strings.HasSuffix(line, "=y") && strings.Contains(line, "CONFIG_LANGUAGE_") {
			enabled++
			assert.Equal(t, "CONFIG_LANGUAGE_JA_JP=y", line)
		}
	}
	assert.Equal(t, 1, enabled)
	assert.Contains(t, string(content), "# CONFIG_LANGUAGE_ZH_CN is not set")
	assert.Contains(t, string(content), `CONFIG_IDF_TARGET="esp32s3"`)
	assert.Contains(t, string(content), "CONFIG_SPIRAM=y")
}

func TestSetLanguage_UnsupportedCode(t *testing.T) {
	p, _ := newPackager(t, "1.0.0")

	assert.ErrorContains(t, p.SetLanguage("fr-FR"), "unsupported language")
}

func TestArchive_NamesByVersionAndLanguage(t *testing.T) {
	p, root := newPackager(t, "1.4.2")

	buildDir := filepath.Join(root, "build")
	require.NoError(t, os.MkdirAll(buildDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "xiaozhi.bin"), []byte{0xE9, 0x01}, 0644))

	dst, err := p.Archive("1.4.2", "en-US")

	assert.NoError(t, err)
	assert.Equal(t, "xiaozhi_1.4.2_en-US.bin", filepath.Base(dst))

	copied, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE9, 0x01}, copied)
}

func TestArchive_MissingBinary(t *testing.T) {
	p, _ := newPackager(t, "1.4.2")

	_, err := p.Archive("1.4.2", "en-US")

	assert.ErrorContains(t, err, "not found")
}

func TestPackAll_DryRunRewritesConfigOnly(t *testing.T) {
	p, root := newPackager(t, "2.0.0")

	err := p.PackAll(context.Background(), []string{"ko-KR"}, true)

	assert.NoError(t, err)
	content, readErr := os.ReadFile(filepath.Join(root, "sdkconfig"))
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "CONFIG_LANGUAGE_KO_KR=y")
	assert.Contains(t, string(content), "# CONFIG_LANGUAGE_ZH_CN is not set")
}

func TestPackAll_InvalidVersionFailsBeforeRewrite(t *testing.T) {
	p, root := newPackager(t, "bogus")

	err := p.PackAll(context.Background(), []string{"en-US"}, true)

	assert.Error(t, err)
	content, readErr := os.ReadFile(filepath.Join(root, "sdkconfig"))
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "CONFIG_LANGUAGE_ZH_CN=y")
}

func TestLanguageCodes_Stable(t *testing.T) {
	codes := pack.LanguageCodes()

	assert.Len(t, codes, 7)
	assert.True(t, sortIsAscending(codes))
	assert.Contains(t, codes, "zh-CN")
}

func sortIsAscending(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
