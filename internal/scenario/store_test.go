package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreGetByKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"key", "active", "description", "ai_instructions", "next_key"}).
		AddRow("SAUDACAO", true, "Saudação", "Cumprimente com carinho.", "DEFAULT")
	mock.ExpectQuery("SELECT key, active").WithArgs("SAUDACAO").WillReturnRows(rows)

	store := NewPostgresStore(mock)
	def, err := store.GetByKey(context.Background(), "SAUDACAO")
	require.NoError(t, err)
	assert.Equal(t, "SAUDACAO", def.Key)
	assert.True(t, def.Active)
	assert.Equal(t, "Cumprimente com carinho.", def.AIInstructions)
	assert.Equal(t, "DEFAULT", def.NextKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetByKeyNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"key", "active", "description", "ai_instructions", "next_key"})
	mock.ExpectQuery("SELECT key, active").WithArgs("MISSING").WillReturnRows(rows)

	store := NewPostgresStore(mock)
	_, err = store.GetByKey(context.Background(), "MISSING")
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestPostgresStoreList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"key", "active", "description", "ai_instructions", "next_key"}).
		AddRow("DEFAULT", true, "", "Responda com educação.", "").
		AddRow("SAUDACAO", true, "Saudação", "Cumprimente.", "")
	mock.ExpectQuery("SELECT key, active").WillReturnRows(rows)

	store := NewPostgresStore(mock)
	defs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "DEFAULT", defs[0].Key)
}

func TestPostgresStoreUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO chat_scenarios").
		WithArgs("SAUDACAO", true, "Saudação", "Cumprimente.", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresStore(mock)
	err = store.Upsert(context.Background(), Definition{
		Key:            "SAUDACAO",
		Active:         true,
		Description:    "Saudação",
		AIInstructions: "Cumprimente.",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
