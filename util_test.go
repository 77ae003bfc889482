package brkheap_test

import (
	"testing"

	"github.com/Jess-Ferguson/brkheap"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		Value     int
		Alignment uint
		Expected  int
	}{
		{0, 16, 0},
		{1, 16, 16},
		{15, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{344, 16, 352},
		{4095, 4096, 4096},
		{4097, 4096, 8192},
		{-1, 4096, 0},
		{-5000, 4096, -4096},
	}

	for _, c := range cases {
		require.Equal(t, c.Expected, brkheap.AlignUp(c.Value, c.Alignment))
	}
}

func TestAlignDown(t *testing.T) {
	cases := []struct {
		Value     int
		Alignment uint
		Expected  int
	}{
		{0, 16, 0},
		{15, 16, 0},
		{16, 16, 16},
		{31, 16, 16},
		{8191, 4096, 4096},
	}

	for _, c := range cases {
		require.Equal(t, c.Expected, brkheap.AlignDown(c.Value, c.Alignment))
	}
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, brkheap.CheckPow2(1, "value"))
	require.NoError(t, brkheap.CheckPow2(16, "value"))
	require.NoError(t, brkheap.CheckPow2(uint(4096), "value"))

	for _, bad := range []int{0, 3, 12, 1000} {
		err := brkheap.CheckPow2(bad, "value")
		require.ErrorIs(t, err, brkheap.PowerOfTwoError)
	}
}
