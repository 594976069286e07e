package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescout/pkg/cache"
	"homescout/pkg/config"
	"homescout/pkg/model"
	"homescout/pkg/request"
	"homescout/pkg/tracker"
)

func newTelegram(t *testing.T, handler http.Handler) (*Telegram, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	reqClient := request.New(cache.Null{}, tracker.New(), time.Second)
	return NewTelegram(reqClient, config.NotifyConfig{
		TelegramURL: srv.URL,
		Token:       "bot-token",
		ChatID:      "-100123",
	}), srv
}

func TestExplorationResultMessage(t *testing.T) {
	var gotPath, gotChatID, gotText string
	tg, _ := newTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChatID = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	tg.ExplorationResult(context.Background(), &model.ExplorationResult{
		AreaIdentifier: "st_albans",
		AreaName:       "St Albans",
		Status:         model.StatusComplete,
		Score: &model.ScoreResult{
			Total:     82.5,
			Safety:    "excellent",
			Breakdown: map[string]float64{"commute": 83, "safety": 100},
		},
	})

	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "-100123", gotChatID)
	assert.Contains(t, gotText, "St Albans")
	assert.Contains(t, gotText, "82.5")
	assert.Contains(t, gotText, "strong candidate")
	assert.Contains(t, gotText, "excellent")
}

func TestFailureMessage(t *testing.T) {
	var gotText string
	tg, _ := newTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	tg.ExplorationResult(context.Background(), &model.ExplorationResult{
		AreaName:    "Hitchin",
		Status:      model.StatusFailed,
		ErrorDetail: "amenities: enrichment unavailable",
	})

	assert.Contains(t, gotText, "Hitchin")
	assert.Contains(t, gotText, "failed")
	assert.Contains(t, gotText, "retry")
}

func TestProgressMessage(t *testing.T) {
	var gotText string
	tg, _ := newTelegram(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotText = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	tg.Progress(context.Background(), map[model.Status]int{
		model.StatusComplete: 4,
		model.StatusPending:  2,
		model.StatusFailed:   1,
	})

	assert.Contains(t, gotText, "4/7")
	assert.Contains(t, gotText, "1 failed")
}

func TestUnconfiguredNotifierSendsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected from an unconfigured notifier")
	}))
	defer srv.Close()

	reqClient := request.New(cache.Null{}, tracker.New(), time.Second)
	tg := NewTelegram(reqClient, config.NotifyConfig{TelegramURL: srv.URL})
	assert.False(t, tg.Enabled())

	tg.ExplorationResult(context.Background(), &model.ExplorationResult{
		AreaName: "Ware",
		Status:   model.StatusComplete,
		Score:    &model.ScoreResult{Total: 50},
	})
}

func TestVerdictBands(t *testing.T) {
	assert.Equal(t, "strong candidate", verdict(80))
	assert.Equal(t, "worth a visit", verdict(60))
	assert.Equal(t, "borderline", verdict(40))
	assert.Equal(t, "probably not", verdict(39.9))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "Bishop's Stortford", escapeMarkdown("Bishop's Stortford"))
	assert.Equal(t, `\*bold\*`, escapeMarkdown(`*bold*`))
	assert.Equal(t, `a\_b`, escapeMarkdown(`a_b`))
}
