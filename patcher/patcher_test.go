package patcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_DropsUnequalLengthPatterns(t *testing.T) {
	p := New(DefaultPatterns())
	for _, pat := range p.patterns {
		if string(pat.Original) == "webdriver" {
			t.Fatalf("webdriver pattern must be dropped, unequal replacement length")
		}
		if string(pat.Original) == "AutomationControlled" {
			t.Fatalf("AutomationControlled pattern must be dropped, unequal replacement length (20 vs 14 bytes)")
		}
	}
	require.Len(t, p.patterns, 2)
}

func TestPatch_EqualLengthReplacementsApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chrome.bin")
	original := []byte("this is a Headless CDP build with AutomationControlled flags and webdriver marker")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	p := New(DefaultPatterns())
	counts, err := p.Patch(path)
	require.NoError(t, err)

	require.Equal(t, 1, counts["rewrite Headless build tag"])
	require.Equal(t, 1, counts["rewrite CDP marker"])
	require.NotContains(t, counts, "rewrite AutomationControlled flag", "unequal-length pattern must never be counted")

	patched, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, len(original), len(patched), "equal-length patterns must not change file size")
	require.Contains(t, string(patched), "Standard")
	require.Contains(t, string(patched), "PRO")
	require.Contains(t, string(patched), "AutomationControlled", "unequal-length pattern must not be applied")
	require.NotContains(t, string(patched), "UserControlled")
	require.Contains(t, string(patched), "webdriver", "unequal-length pattern must not be applied")
}

func TestPatch_AbsentFileIsNoop(t *testing.T) {
	p := New(DefaultPatterns())
	counts, err := p.Patch(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	require.Empty(t, counts)
}

func TestVerify_TrueAfterPatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chrome.bin")
	require.NoError(t, os.WriteFile(path, []byte("Headless CDP AutomationControlled"), 0o644))

	p := New(DefaultPatterns())
	_, err := p.Patch(path)
	require.NoError(t, err)

	clean, err := p.Verify(path)
	require.NoError(t, err)
	require.True(t, clean)
}

func TestRestore_UndoesPatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chrome.bin")
	original := []byte("Headless build")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	p := New(DefaultPatterns())
	_, err := p.Patch(path)
	require.NoError(t, err)
	require.NoError(t, p.Restore(path))

	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, restored)
}
