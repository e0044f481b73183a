package announce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinosemi/internal/index"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		post Post
		want string
	}{
		{
			name: "positive with hashtags",
			post: Post{
				Key:      "HINOSEMI",
				Title:    "日の丸半導体指数",
				Percent:  1.234,
				Tickers:  []string{"8035.T", "6857.T"},
				Hashtags: []string{"#桜Index", "#HINOSEMI"},
			},
			want: "【HINOSEMI | 日の丸半導体指数】\n本日：+1.23%\n構成：8035.T,6857.T\n#桜Index #HINOSEMI\n",
		},
		{
			name: "negative without title or hashtags",
			post: Post{Key: "HINOSEMI", Percent: -0.5, Tickers: []string{"8035.T"}},
			want: "【HINOSEMI】\n本日：-0.50%\n構成：8035.T\n",
		},
		{
			name: "zero is signed",
			post: Post{Key: "X", Percent: 0, Tickers: []string{"A"}},
			want: "【X】\n本日：+0.00%\n構成：A\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.post)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderRequiresKey(t *testing.T) {
	_, err := Render(Post{})
	assert.Error(t, err)
}

func TestFromSnapshot(t *testing.T) {
	snap := index.Snapshot{Key: "HINOSEMI", PctIntraday: 2.5, Tickers: []string{"8035.T"}}
	p := FromSnapshot(snap, "title", []string{"#x"})

	assert.Equal(t, "HINOSEMI", p.Key)
	assert.Equal(t, 2.5, p.Percent)
	assert.Equal(t, []string{"8035.T"}, p.Tickers)
}
