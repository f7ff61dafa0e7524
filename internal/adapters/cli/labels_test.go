package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMustRegister_PanicsOnRejectedLabel(t *testing.T) {
	failing := func(tag language.Tag, key, msg string) error {
		if tag == Indonesian && key == "Letter" {
			return errors.New("catalog closed")
		}
		return nil
	}

	assert.PanicsWithValue(t, `register label "Letter" for id: catalog closed`, func() {
		mustRegister(failing)
	})
}

func TestMustRegister_LoadsBothLocales(t *testing.T) {
	got := map[language.Tag]int{}
	mustRegister(func(tag language.Tag, key, msg string) error {
		got[tag]++
		if tag == English {
			assert.Equal(t, key, msg)
		}
		return nil
	})

	assert.Equal(t, len(translations), got[Indonesian])
	assert.Equal(t, len(translations), got[English])
}

func TestTranslationsHaveUniqueKeys(t *testing.T) {
	seen := map[string]bool{}
	for _, tr := range translations {
		assert.NotEmpty(t, tr[1], "label %q", tr[0])
		assert.False(t, seen[tr[0]], "label %q listed twice", tr[0])
		seen[tr[0]] = true
	}
}

func TestNewPrinter(t *testing.T) {
	assert.Equal(t, "Surat", NewPrinter("id").Sprintf("Letter"))
	assert.Equal(t, "Letter", NewPrinter("en").Sprintf("Letter"))
	assert.Equal(t, "Letter", NewPrinter("fr").Sprintf("Letter"))
	assert.Equal(t, "Letter", NewPrinter("").Sprintf("Letter"))
}
