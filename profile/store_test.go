package profile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(context.Background(), Options{ProfilesDir: dir})
	require.NoError(t, err)
	return s
}

func TestNewStore_CreatesDefaultProfilesAndSnapshot(t *testing.T) {
	s := newTestStore(t)
	require.Len(t, s.order, 3)

	snapshot := filepath.Join(s.profilesDir, "profiles.json")
	data, err := os.ReadFile(snapshot)
	require.NoError(t, err)

	var list []*SyntheticProfile
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 3)
}

func TestGet_ByID(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Get(context.Background(), "windows_chrome_124")
	require.NoError(t, err)
	require.Equal(t, "windows_chrome_124", p.ID)
	require.Equal(t, "Chrome 124", p.Metadata.Browser)
}

func TestGet_UnknownIDErrors(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestGet_RotationVisitsEveryProfileFairly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seen := make(map[string]int)
	const rounds = 3
	for i := 0; i < rounds*len(s.order); i++ {
		p, err := s.Get(ctx, "")
		require.NoError(t, err)
		seen[p.ID]++
	}

	for _, id := range s.order {
		require.GreaterOrEqual(t, seen[id], rounds, "profile %s must be visited at least once per rotation round", id)
	}
}

func TestGet_UpdatesLastUsedAndPersists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.Get(ctx, "linux_firefox_120")
	require.NoError(t, err)
	before := p.Metadata.LastUsed

	p2, err := s.Get(ctx, "linux_firefox_120")
	require.NoError(t, err)
	require.True(t, !p2.Metadata.LastUsed.Before(before))

	data, err := os.ReadFile(filepath.Join(s.profilesDir, "profiles.json"))
	require.NoError(t, err)
	var list []*SyntheticProfile
	require.NoError(t, json.Unmarshal(data, &list))
	var persisted *SyntheticProfile
	for _, lp := range list {
		if lp.ID == "linux_firefox_120" {
			persisted = lp
		}
	}
	require.NotNil(t, persisted)
	require.True(t, persisted.Metadata.LastUsed.Equal(p2.Metadata.LastUsed))
}

func TestProfileRoundTrip_JSON(t *testing.T) {
	p := createProfile("test", "Windows 11", "Chrome 124", 1920, 1080, t.TempDir())
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var out SyntheticProfile
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, p.ID, out.ID)
	require.Equal(t, p.Fingerprint.UserAgent, out.Fingerprint.UserAgent)
	require.Equal(t, p.VisitHistory[0].URL, out.VisitHistory[0].URL)
}
