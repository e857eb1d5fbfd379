package database

import (
	"math/big"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "44.00", "0.10", "123456789.99", "-3.5"} {
		in := decimal.RequireFromString(s)
		out, err := Decimal(Numeric(in))
		require.NoError(t, err)
		assert.True(t, in.Equal(out), "%s != %s", in, out)
	}
}

func TestDecimal_EdgeCases(t *testing.T) {
	d, err := Decimal(pgtype.Numeric{})
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = Decimal(pgtype.Numeric{NaN: true, Valid: true})
	assert.Error(t, err)

	_, err = Decimal(pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true})
	assert.Error(t, err)

	d, err = Decimal(pgtype.Numeric{Int: big.NewInt(4400), Exp: -2, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, "44.00", d.StringFixed(2))
}

func TestMigrationFiles_Sorted(t *testing.T) {
	files, err := MigrationFiles(fstest.MapFS{
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("notes")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_first.sql", "002_second.sql"}, files)
}
