package register

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/lexikon/internal/apperr"
)

func TestNewVolume(t *testing.T) {
	tests := []struct {
		name     string
		wantType VolumeType
		wantKey  string
		wantFile string
	}{
		{"I,1", FirstSeries, "1_01_1", "I_1.json"},
		{"III,1", FirstSeries, "1_03_1", "III_1.json"},
		{"XVIII,4", FirstSeries, "1_18_4", "XVIII_4.json"},
		{"XXIV", FirstSeries, "1_24_0", "XXIV.json"},
		{"I A,1", SecondSeries, "2_01_1", "I_A_1.json"},
		{"X A", SecondSeries, "2_10_0", "X_A.json"},
		{"S II", Supplements, "3_02_0", "S_II.json"},
		{"R", RegisterVolume, "4_00_0", "R.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVolume(tt.name, "1900")
			require.NoError(t, err)
			require.Equal(t, tt.wantType, v.Type)
			require.Equal(t, tt.wantKey, v.SortKey)
			require.Equal(t, tt.wantFile, v.FileName())
		})
	}
}

func TestNewVolumeMalformed(t *testing.T) {
	for _, name := range []string{"", "Q", "I,5", "S I,1", "S I A", "i,1"} {
		_, err := NewVolume(name, "1900")
		require.Error(t, err, "name %q", name)
	}
}

func TestVolumeSortKeysFollowCatalogOrder(t *testing.T) {
	all := DefaultCatalog().All()
	require.Len(t, all, 84)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].SortKey, all[i].SortKey, "%s before %s", all[i-1].Name, all[i].Name)
	}
}

func TestCatalogUnknownVolume(t *testing.T) {
	_, err := DefaultCatalog().Volume("XXX,9")
	require.True(t, errors.Is(err, apperr.ErrUnknownVolume))

	var regErr *apperr.RegisterError
	require.ErrorAs(t, err, &regErr)
	require.Equal(t, "XXX,9", regErr.Volume)
}

func TestLoadCatalogDuplicate(t *testing.T) {
	_, err := LoadCatalog([]byte("- name: \"I,1\"\n  year: \"1893\"\n- name: \"I,1\"\n  year: \"1894\"\n"))
	require.Error(t, err)
}
