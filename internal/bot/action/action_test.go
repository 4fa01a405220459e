package action

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/estatebot/core/telegram/callbacks"
)

func decodeData(t *testing.T, data string) (Action, error) {
	t.Helper()
	key, payload := callbacks.Parse(&tele.Callback{Data: data})
	route, v, err := Decode(key, payload)
	if err != nil {
		return Action{}, err
	}
	a, ok := v.(Action)
	require.True(t, ok)
	assert.Equal(t, string(a.Kind), route)
	return a, nil
}

func TestEncodeDecode(t *testing.T) {
	for _, a := range []Action{
		Menu(MainMenu),
		Paged(ListTours, 3),
		Favorite(42),
		Slot("14-16"),
	} {
		got, err := decodeData(t, a.Data())
		require.NoError(t, err, a.Data())
		assert.Equal(t, a, got)
	}
}

func TestDecodeLegacyForms(t *testing.T) {
	got, err := decodeData(t, "make_favorite_17")
	require.NoError(t, err)
	assert.Equal(t, Favorite(17), got)

	got, err = decodeData(t, "list_properties:2")
	require.NoError(t, err)
	assert.Equal(t, Paged(ListProperties, 2), got)

	got, err = decodeData(t, "main_menu")
	require.NoError(t, err)
	assert.Equal(t, Menu(MainMenu), got)
}

func TestDecodeDefaultsAndClamps(t *testing.T) {
	got, err := decodeData(t, "\flist_users")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)

	got, err = decodeData(t, "\flist_users|-4")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, data := range []string{
		"",
		"\fexplode|1",
		"\fmake_favorite|abc",
		"\fmake_favorite|0",
		"make_favorite_",
		"\flist_tours|two",
		"\ftour_slot",
		"9-11",
	} {
		_, err := decodeData(t, data)
		assert.ErrorIs(t, err, ErrMalformed, data)
	}
}

func TestButtonMatchesData(t *testing.T) {
	btn := Paged(ListFavorites, 2).Button("Next")
	assert.Equal(t, Paged(ListFavorites, 2).Data(), callbacks.Encode(btn.Unique, btn.Data))
}
