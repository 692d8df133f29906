package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in  string
		out time.Duration
		err bool
	}{
		{in: "10s", out: 10 * time.Second},
		{in: "250ms", out: 250 * time.Millisecond},
		{in: "1500", out: 1500 * time.Millisecond},
		{in: "0.5", out: 500 * time.Microsecond},
		{in: "ten seconds", err: true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			d, err := ParseDuration(tc.in)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.out, d)
		})
	}
}

func TestNullDurationJSON(t *testing.T) {
	t.Parallel()

	var d NullDuration
	require.NoError(t, json.Unmarshal([]byte(`"2s"`), &d))
	assert.Equal(t, NullDurationFrom(2*time.Second), d)

	require.NoError(t, json.Unmarshal([]byte(`100`), &d))
	assert.Equal(t, NullDurationFrom(100*time.Millisecond), d)

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.False(t, d.Valid)

	require.Error(t, json.Unmarshal([]byte(`true`), &d))

	data, err := json.Marshal(NewNullDuration(time.Minute, true))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m0s"`, string(data))

	data, err = json.Marshal(NewNullDuration(time.Minute, false))
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(data))
}

func TestNullDurationText(t *testing.T) {
	t.Parallel()

	var d NullDuration
	require.NoError(t, d.UnmarshalText([]byte("3s")))
	assert.Equal(t, 3*time.Second, d.TimeDuration())
	assert.True(t, d.Valid)

	require.NoError(t, d.UnmarshalText(nil))
	assert.False(t, d.Valid)
}
