package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-reread/internal/model"
)

func testPrinter() (*Printer, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return NewPrinter(buf, buf, false), buf
}

func sampleArticle() model.Article {
	return model.Article{
		ID:          7,
		URL:         "https://example.com/post",
		Title:       model.Ptr("A post"),
		Status:      model.StatusUnread,
		IsFavorite:  true,
		UserMemo:    model.Ptr("secret memo"),
		Description: model.Ptr("summary text"),
		SavedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Tags:        []model.Tag{{ID: 1, Name: "go"}},
	}
}

func TestArticles_HonoursDisplay(t *testing.T) {
	tests := []struct {
		name    string
		display Display
		want    []string
		absent  []string
	}{
		{name: "everything", display: Display{ShowURL: true, ShowMemo: true}, want: []string{"A post", "https://example.com/post", "secret memo"}},
		{name: "no url", display: Display{ShowMemo: true}, want: []string{"A post", "secret memo"}, absent: []string{"https://example.com/post"}},
		{name: "no memo", display: Display{ShowURL: true}, want: []string{"https://example.com/post"}, absent: []string{"secret memo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, buf := testPrinter()
			require.NoError(t, p.Articles([]model.Article{sampleArticle()}, tt.display))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestArticle_Detail(t *testing.T) {
	p, buf := testPrinter()
	p.Article(sampleArticle(), Display{ShowSummary: true})

	out := buf.String()
	assert.Contains(t, out, "A post *")
	assert.Contains(t, out, "summary text")
	assert.Contains(t, out, "Tags: go")
	assert.NotContains(t, out, "secret memo")
	assert.NotContains(t, out, "https://example.com/post")
}

func TestArticles_Empty(t *testing.T) {
	p, buf := testPrinter()
	require.NoError(t, p.Articles(nil, Display{}))
	assert.Equal(t, "No articles.\n", buf.String())
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("あ", maxCell+5)
	got := []rune(truncate(long))
	assert.Len(t, got, maxCell)
	assert.Equal(t, '…', got[len(got)-1])
	assert.Equal(t, "short", truncate("short"))
}
