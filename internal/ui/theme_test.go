package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTheme_FallsBackToNightfox(t *testing.T) {
	assert.Equal(t, "Kanagawa", GetTheme("Kanagawa").Name)
	assert.Equal(t, "Nightfox", GetTheme("Dracula").Name)
}

func TestNextTheme_Cycles(t *testing.T) {
	names := ThemeNames()
	for i, name := range names {
		assert.Equal(t, names[(i+1)%len(names)], NextTheme(name))
	}
	assert.Equal(t, names[0], NextTheme("unknown"))
}

func TestThemes_CoverEveryRowState(t *testing.T) {
	states := []rowState{stateSaved, stateModified, stateNew, stateFailed, stateValidated}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, st := range states {
			assert.NotEmpty(t, th.StatusColors[st.String()], "%s lacks %s", name, st)
		}
	}
}

func TestStyles_WithBackgroundKeepsStatusFallback(t *testing.T) {
	th := GetTheme("Slate")
	styles := th.Styles().WithBackground(th.Surface)
	assert.Equal(t, styles.muted, th.Muted)
	assert.NotEmpty(t, styles.StatusStyle("unknown").Render("x"))
}
