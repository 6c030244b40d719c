package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emmett/ferryvox/internal/config"
)

func TestClassify(t *testing.T) {
	cfg := config.DefaultConfig()
	c := NewIntentClassifier(cfg.Intents.Exit, cfg.Intents.Navigation)

	cases := map[string]Intent{
		"":          IntentNone,
		"   ":       IntentNone,
		"終了":        IntentExit,
		"もう終わりにして":  IntentExit,
		"フェリーはどこ":   IntentNavigation,
		"どっちに行けばいい": IntentNavigation,
		"今日はいい天気":   IntentUnknown,
		"フェリーを終了":   IntentExit, // exit wins
	}
	for text, want := range cases {
		assert.Equal(t, want, c.Classify(text), text)
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	c := NewIntentClassifier([]string{"Quit"}, []string{" FERRY "})

	assert.Equal(t, IntentExit, c.Classify("please QUIT now"))
	assert.Equal(t, IntentNavigation, c.Classify("which Ferry"))
	assert.Equal(t, IntentUnknown, c.Classify("hello"))
}

func TestClassifierIgnoresBlankKeywords(t *testing.T) {
	c := NewIntentClassifier([]string{""}, nil)
	assert.Equal(t, IntentUnknown, c.Classify("anything"))
}
