package fortune

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hk-410/hakyng-bots/bot"
	"github.com/hk-410/hakyng-bots/llm"
	"github.com/hk-410/hakyng-bots/llm/testutil"
	"github.com/hk-410/hakyng-bots/saju"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// 2024-01-01 is a 갑자 day.
var newYear = time.Date(2024, 1, 1, 7, 0, 0, 0, saju.KST)

type recordingPoster struct {
	posts []string
}

func (p *recordingPoster) Post(ctx context.Context, text string) (string, error) {
	p.posts = append(p.posts, text)
	return fmt.Sprintf("id-%d", len(p.posts)), nil
}

func (p *recordingPoster) Reply(ctx context.Context, text, inReplyToID string) (string, error) {
	return p.Post(ctx, text)
}

func forecastJSON(t *testing.T, n int) string {
	t.Helper()
	f := Forecast{Summary: "1위: [수(水) DevOps/SRE] (식신 / 대길)\n2위: ..."}
	for i := 0; i < n; i++ {
		f.Details = append(f.Details, Detail{
			Persona:     saju.Personas[(4-i+len(saju.Personas))%len(saju.Personas)].Name,
			Shipshin:    "식신",
			LuckLevel:   "대길",
			Explanation: fmt.Sprintf("설명 %d", i+1),
			LuckyItem:   "따뜻한 아메리카노",
		})
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	return "Here is the ranking:\n```json\n" + string(data) + "\n```"
}

func TestRun_DryRun(t *testing.T) {
	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: forecastJSON(t, 5)}}}
	poster := &recordingPoster{}
	b := New(mock, bot.NewPublisher(poster, nil, 0))

	res, err := b.Run(context.Background(), bot.Run{DryRun: true, Now: newYear, Logger: quietLogger})
	require.NoError(t, err)

	assert.Empty(t, poster.posts)
	assert.Equal(t, "2024년 1월 1일 오늘의 IT 직무 운세 🔮\n\n1위: [수(水) DevOps/SRE] (식신 / 대길)\n2위: ...", res.Tweet)
	require.Len(t, res.Thread, 5)
	assert.Equal(t, "[1위: [수(水) DevOps/SRE] (대길)]\n설명 1\n\n🍀 행운의 아이템: 따뜻한 아메리카노", res.Thread[0])

	ranked, ok := res.Details.([]RankedReply)
	require.True(t, ok)
	assert.Equal(t, 5, ranked[4].Rank)

	req := mock.LastRequest()
	assert.Equal(t, "ranking", req.Capability)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.75, *req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "Today is 갑자 (2024년 1월 1일).")
	assert.Contains(t, req.Messages[1].Content, "- [목(木) PM]은(는) [비견]입니다.")
	assert.Contains(t, req.Messages[1].Content, "- [수(水) DevOps/SRE]은(는) [식신]입니다.")
}

func TestRun_Live(t *testing.T) {
	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: forecastJSON(t, 5)}}}
	poster := &recordingPoster{}
	b := New(mock, bot.NewPublisher(poster, nil, 0))

	res, err := b.Run(context.Background(), bot.Run{Now: newYear, Logger: quietLogger})
	require.NoError(t, err)
	assert.Len(t, poster.posts, 6)
	assert.Equal(t, res.Tweet, poster.posts[0])
	assert.Equal(t, []string{"id-1", "id-2", "id-3", "id-4", "id-5", "id-6"}, res.TweetIDs)
}

func TestRun_InvalidForecast(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no JSON", "오늘은 운세를 볼 수 없습니다.", "valid JSON"},
		{"missing summary", `{"mainTweetSummary": " ", "details": []}`, "mainTweetSummary"},
		{"too few details", forecastJSON(t, 4), "got 4 details, want 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: tt.content}}}
			poster := &recordingPoster{}

			_, err := New(mock, bot.NewPublisher(poster, nil, 0)).Run(context.Background(), bot.Run{Now: newYear, Logger: quietLogger})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, poster.posts)
		})
	}
}

func TestRun_LLMError(t *testing.T) {
	mock := &testutil.MockLLMClient{Err: llm.NewFatalError(fmt.Errorf("invalid api key"))}

	_, err := New(mock, bot.NewPublisher(nil, nil, 0)).Run(context.Background(), bot.Run{DryRun: true, Now: newYear})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(saju.Personas)

	assert.Contains(t, prompt, "- [금(金) 개발자]: Gyeong(庚) 금 - (Ohaeng: Metal, Role: Logic, Decisiveness)")
	assert.Contains(t, prompt, "[Great Fortune (대길)]\n- Sikshin (식신)")
	assert.Contains(t, prompt, "대길, 중길, 소길, 길흉상반, 소흉, 중흉, 대흉")
	assert.Contains(t, prompt, "rank the 5 job roles from 1st to 5th place")
	assert.Contains(t, prompt, `"mainTweetSummary"`)
}

func TestWithTemperature(t *testing.T) {
	mock := &testutil.MockLLMClient{Responses: []*llm.Response{{Content: forecastJSON(t, 5)}}}
	b := New(mock, bot.NewPublisher(nil, nil, 0), WithTemperature(0.2))

	_, err := b.Run(context.Background(), bot.Run{DryRun: true, Now: newYear, Logger: quietLogger})
	require.NoError(t, err)
	assert.Equal(t, 0.2, *mock.LastRequest().Temperature)
}
