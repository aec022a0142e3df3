package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/tradeqa/internal/models"
	"github.com/xhad/tradeqa/internal/types"
	cfgPkg "github.com/xhad/tradeqa/pkg/config"
	"github.com/xhad/tradeqa/pkg/llm"
)

func TestRelayForwardsToAttachedNotifier(t *testing.T) {
	r := &relay{}
	r.Notify("printed to the terminal")

	var got []string
	r.Attach(types.NotifierFunc(func(message string) { got = append(got, message) }))
	r.Notify("요청 한도 초과")

	assert.Equal(t, []string{"요청 한도 초과"}, got)
}

func TestNewAppWithoutSearch(t *testing.T) {
	cfg := &cfgPkg.Config{}
	cfg.Corpus.DocsDir = t.TempDir()
	cfg.Search.Disabled = true

	a, err := newApp(cfg)
	require.NoError(t, err)

	assert.Empty(t, a.enricher.Search(context.Background(), "Lucky Huaguang", models.KindEntity))
	assert.Len(t, a.catalog.Documents(), 8)
	assert.Zero(t, a.indexes.Len())
}

func TestWithGeneratorRequiresCredential(t *testing.T) {
	cfg := &cfgPkg.Config{}
	cfg.LLM.Provider = "googleai"
	cfg.Search.Disabled = true

	a, err := newApp(cfg)
	require.NoError(t, err)

	err = a.withGenerator(context.Background())
	require.ErrorIs(t, err, llm.ErrNoCredential)
	assert.Contains(t, err.Error(), "generation client")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []models.Transcript{
		{
			Question:  "강소낙채 세율은?",
			Answer:    "4.10%입니다.",
			Path:      "fresh",
			Outcome:   "quick",
			Elapsed:   1500 * time.Millisecond,
			CreatedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		},
		{Question: "근거는?", Answer: "부과 규칙 제2조", Path: "followup", Outcome: "complete"},
	})

	out := buf.String()
	assert.Contains(t, out, "[2024-01-01 09:00:00] fresh/quick 1.5s")
	assert.Contains(t, out, "Q: 강소낙채 세율은?\nA: 4.10%입니다.")
	assert.Contains(t, out, "followup/complete")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("강소낙채")), bytes.Index(buf.Bytes(), []byte("근거는?")))
}

func TestHintTimeoutCoversLimiter(t *testing.T) {
	cfg := &cfgPkg.Config{}
	cfg.Search.RateLimit = 1
	assert.Equal(t, 9*time.Second, hintTimeout(cfg))

	cfg.Search.RateLimit = 10
	assert.Equal(t, 5*time.Second, hintTimeout(cfg))
}
