package helpers

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenOTPCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		code, err := GenOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 4)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1000)
		require.LessOrEqual(t, n, 9999)
		seen[code] = true
	}
	// 500 draws from 9000 values repeating a single code every time would
	// mean the generator is broken.
	require.Greater(t, len(seen), 1)
}
