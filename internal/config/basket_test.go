package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"hinosemi/internal/index"
)

func TestBasketDecode(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    []string
		wantErr bool
	}{
		{name: "symbols with names", value: "8035.T=東京エレクトロン,6857.T=アドバンテスト", want: []string{"8035.T", "6857.T"}},
		{name: "bare symbols", value: "A, B ,C", want: []string{"A", "B", "C"}},
		{name: "trailing comma", value: "A,", want: []string{"A"}},
		{name: "duplicate", value: "A,A", wantErr: true},
		{name: "empty symbol", value: "=Name", wantErr: true},
		{name: "nothing", value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Basket
			err := b.Decode(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Symbols())
		})
	}
}

func TestBasketCopies(t *testing.T) {
	b := DefaultBasket()
	items := b.Instruments()
	items[0].Symbol = "MUTATED"

	assert.Equal(t, "8035.T", b.Instruments()[0].Symbol)
}

func TestBasketYAMLRoundTrip(t *testing.T) {
	b, err := NewBasket(index.Instrument{Symbol: "A", Name: "Alpha"}, index.Instrument{Symbol: "B"})
	require.NoError(t, err)

	data, err := yaml.Marshal(struct {
		Basket Basket `yaml:"basket"`
	}{b})
	require.NoError(t, err)

	var out struct {
		Basket Basket `yaml:"basket"`
	}
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, b.Instruments(), out.Basket.Instruments())
}
