package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsNPerRow(t *testing.T) {
	buttons := []InlineBtn{
		{Text: "Да", Unique: "confirm_yes"},
		{Text: "Нет", Unique: "confirm_no"},
		{Text: "?", Unique: "extra", Data: "1"},
	}

	single := InlineButtonsNPerRow(buttons[:2], 0)
	require.Len(t, single.InlineKeyboard, 1)
	require.Len(t, single.InlineKeyboard[0], 2)
	assert.Equal(t, "Да", single.InlineKeyboard[0][0].Text)
	assert.Equal(t, "confirm_yes", single.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "confirm_no", single.InlineKeyboard[0][1].Unique)

	split := InlineButtonsNPerRow(buttons, 2)
	require.Len(t, split.InlineKeyboard, 2)
	assert.Len(t, split.InlineKeyboard[1], 1)
	assert.Equal(t, "extra", split.InlineKeyboard[1][0].Unique)
	assert.Equal(t, "1", split.InlineKeyboard[1][0].Data)
}
