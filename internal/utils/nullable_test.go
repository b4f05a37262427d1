package utils_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-catalog-link/internal/utils"
	"github.com/stretchr/testify/require"
)

type ratingPayload struct {
	Rating utils.Nullable[int] `json:"rating"`
}

func TestNullable_Unmarshal(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		var p ratingPayload
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
		require.False(t, p.Rating.Set)
		require.Nil(t, p.Rating.Ptr())
	})

	t.Run("null", func(t *testing.T) {
		var p ratingPayload
		require.NoError(t, json.Unmarshal([]byte(`{"rating":null}`), &p))
		require.True(t, p.Rating.Set)
		require.False(t, p.Rating.Valid)
	})

	t.Run("value", func(t *testing.T) {
		var p ratingPayload
		require.NoError(t, json.Unmarshal([]byte(`{"rating":4}`), &p))
		require.True(t, p.Rating.Set)
		require.True(t, p.Rating.Valid)
		require.Equal(t, 4, p.Rating.Value)
		require.Equal(t, 4, utils.Value(p.Rating.Ptr()))
	})

	t.Run("wrong type", func(t *testing.T) {
		var p ratingPayload
		require.Error(t, json.Unmarshal([]byte(`{"rating":"five"}`), &p))
	})
}

func TestNullable_Marshal(t *testing.T) {
	b, err := json.Marshal(ratingPayload{Rating: utils.Null[int]()})
	require.NoError(t, err)
	require.JSONEq(t, `{"rating":null}`, string(b))

	b, err = json.Marshal(ratingPayload{Rating: utils.Some(3)})
	require.NoError(t, err)
	require.JSONEq(t, `{"rating":3}`, string(b))
}

func TestPointerHelpers(t *testing.T) {
	require.Equal(t, 0, utils.Value[int](nil))
	require.Equal(t, "none", utils.ValueOr[string](nil, "none"))
	require.Equal(t, "set", utils.ValueOr(utils.Ptr("set"), "none"))

	require.Nil(t, utils.Clone[string](nil))
	original := utils.Ptr("notes")
	clone := utils.Clone(original)
	*clone = "changed"
	require.Equal(t, "notes", *original)
}
