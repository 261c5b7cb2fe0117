package windows

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestFieldEntryCommit(t *testing.T) {
	test.NewTempApp(t)

	var commits []string
	accept := true
	e := NewFieldEntry("name", "Ada", true, func(column, text string) bool {
		commits = append(commits, column+"="+text)
		return accept
	})

	assert.Equal(t, "Ada", e.Text)
	assert.False(t, e.Dirty())

	e.SetText("Grace")
	assert.True(t, e.Dirty())
	e.FocusLost()
	assert.Equal(t, []string{"name=Grace"}, commits)
	assert.False(t, e.Dirty())

	accept = false
	e.SetText("Linus")
	e.FocusLost()
	e.FocusLost()
	assert.Len(t, commits, 3, "rejected text stays dirty and is retried")
	assert.True(t, e.Dirty())
}

func TestFieldEntryNull(t *testing.T) {
	test.NewTempApp(t)

	called := false
	e := NewFieldEntry("notes", nil, true, func(string, string) bool {
		called = true
		return true
	})
	assert.Equal(t, "", e.Text)
	e.FocusLost()
	assert.False(t, called)
}

func TestFieldEntryDisabled(t *testing.T) {
	test.NewTempApp(t)

	called := false
	e := NewFieldEntry("id", int64(7), false, func(string, string) bool {
		called = true
		return true
	})
	assert.True(t, e.Disabled())
	assert.Equal(t, "7", e.Text)

	e.SetText("8")
	e.FocusLost()
	assert.False(t, called)
}
