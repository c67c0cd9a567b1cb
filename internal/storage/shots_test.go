package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func shotMeta(symbol string, takenAt time.Time) ShotMeta {
	return ShotMeta{
		ID:      uuid.NewString(),
		Symbol:  symbol,
		Tool:    "Trend Line",
		Price:   "150,25",
		Format:  "png",
		TakenAt: takenAt,
	}
}

func TestShotStoreSaveAndRead(t *testing.T) {
	s, err := NewShotStore(t.TempDir())
	require.NoError(t, err)

	meta := shotMeta("ASELS", time.Now())
	require.NoError(t, s.Save(meta, []byte("fake png bytes")))

	got, err := s.Get(meta.ID)
	require.NoError(t, err)
	require.Equal(t, "ASELS", got.Symbol)
	require.Equal(t, "Trend Line", got.Tool)

	data, format, err := s.ReadImage(meta.ID)
	require.NoError(t, err)
	require.Equal(t, "png", format)
	require.Equal(t, []byte("fake png bytes"), data)
}

func TestShotStoreRejectsBadID(t *testing.T) {
	s, err := NewShotStore(t.TempDir())
	require.NoError(t, err)

	require.Error(t, s.Save(ShotMeta{ID: "../../etc/passwd"}, nil))
	_, err = s.Get("not-a-uuid")
	require.Error(t, err)
}

func TestShotStoreListBySymbolNewestFirst(t *testing.T) {
	s, err := NewShotStore(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	older := shotMeta("ASELS", base)
	newer := shotMeta("ASELS", base.Add(time.Hour))
	require.NoError(t, s.Save(older, []byte("a")))
	require.NoError(t, s.Save(newer, []byte("b")))
	require.NoError(t, s.Save(shotMeta("THYAO", base), []byte("c")))

	got, err := s.List("ASELS")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, newer.ID, got[0].ID)

	all, err := s.List("")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestShotStoreDelete(t *testing.T) {
	s, err := NewShotStore(t.TempDir())
	require.NoError(t, err)

	meta := shotMeta("ASELS", time.Now())
	require.NoError(t, s.Save(meta, []byte("x")))
	require.NoError(t, s.Delete(meta.ID))

	_, err = s.Get(meta.ID)
	require.Error(t, err)
}

func TestShotStorePruneKeepsNewest(t *testing.T) {
	s, err := NewShotStore(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	other := shotMeta("THYAO", base)
	require.NoError(t, s.Save(other, []byte("t")))

	oldest := shotMeta("ASELS", base)
	require.NoError(t, s.Save(oldest, []byte("0")))
	for i := 1; i <= MaxShots; i++ {
		require.NoError(t, s.Save(shotMeta("ASELS", base.Add(time.Duration(i)*time.Minute)), []byte("x")))
	}

	// The cap is per symbol; THYAO's shot outlives the ASELS churn.
	all, err := s.List("")
	require.NoError(t, err)
	require.Len(t, all, MaxShots+1)

	_, err = s.Get(oldest.ID)
	require.Error(t, err, "oldest shot pruned")
	_, err = s.Get(other.ID)
	require.NoError(t, err)
}
