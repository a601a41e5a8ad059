package robot

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"AUTO", ModeAuto},
		{"auto", ModeAuto},
		{" misto ", ModeMisto},
		{"HUMANO", ModeHumano},
		{"", ModeMisto},
		{"garbage", ModeMisto},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in, ModeMisto); got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	st := NewState(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cfg := st.Get()
			cfg.Mode = ModeAuto
			st.Set(cfg)
		}()
		go func() {
			defer wg.Done()
			_ = st.Get()
		}()
	}
	wg.Wait()

	if got := st.Get().Mode; got != ModeAuto {
		t.Errorf("Mode = %q, want %q", got, ModeAuto)
	}
}

func TestGetOrCreateReturnsExistingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"robot_enabled", "mode", "business_hours_start", "business_hours_end", "timezone", "fallback_to_human"}).
		AddRow(true, "AUTO", "09:00", "18:00", "America/Sao_Paulo", false)
	mock.ExpectQuery("SELECT robot_enabled, mode").WillReturnRows(rows)

	store := NewPostgresStore(mock)
	cfg, err := store.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, cfg.Mode)
	assert.Equal(t, "09:00", cfg.BusinessHoursStart)
	assert.False(t, cfg.FallbackToHuman)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateSeedsDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT robot_enabled, mode").WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO robot_config").
		WithArgs(true, "MISTO", "08:00", "20:00", "America/Sao_Paulo", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresStore(mock)
	cfg, err := store.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNormalizesMode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO robot_config").
		WithArgs(true, "MISTO", "08:00", "20:00", "America/Sao_Paulo", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	cfg := DefaultConfig()
	cfg.Mode = "bogus"
	store := NewPostgresStore(mock)
	require.NoError(t, store.Save(context.Background(), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}
