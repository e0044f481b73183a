package config

import (
	"fmt"
	"strings"

	"hinosemi/internal/index"
)

// Basket is the ordered, immutable list of index constituents.
//
// It is decoded from YAML as a list of {symbol, name} entries and from the environment as
// "SYMBOL=Name,SYMBOL=Name". Accessors return copies.
type Basket struct {
	items []index.Instrument
}

// NewBasket builds a basket, rejecting empty and duplicate symbols.
func NewBasket(instruments ...index.Instrument) (Basket, error) {
	seen := make(map[string]bool, len(instruments))
	items := make([]index.Instrument, 0, len(instruments))
	for i, inst := range instruments {
		inst.Symbol = strings.TrimSpace(inst.Symbol)
		inst.Name = strings.TrimSpace(inst.Name)
		if inst.Symbol == "" {
			return Basket{}, fmt.Errorf("basket entry %d: empty symbol", i)
		}
		if seen[inst.Symbol] {
			return Basket{}, fmt.Errorf("basket entry %d: duplicate symbol %q", i, inst.Symbol)
		}
		seen[inst.Symbol] = true
		if inst.Name == "" {
			inst.Name = inst.Symbol
		}
		items = append(items, inst)
	}
	return Basket{items: items}, nil
}

// DefaultBasket returns the HINOSEMI constituents in canonical order.
func DefaultBasket() Basket {
	return Basket{items: []index.Instrument{
		{Symbol: "8035.T", Name: "東京エレクトロン"},
		{Symbol: "6857.T", Name: "アドバンテスト"},
		{Symbol: "285A.T", Name: "キオクシア"},
		{Symbol: "6920.T", Name: "レーザーテック"},
		{Symbol: "6146.T", Name: "ディスコ"},
		{Symbol: "6526.T", Name: "ソシオネクスト"},
		{Symbol: "6723.T", Name: "ルネサスエレクトロニクス"},
	}}
}

// Instruments returns a copy of the constituents.
func (b Basket) Instruments() []index.Instrument {
	out := make([]index.Instrument, len(b.items))
	copy(out, b.items)
	return out
}

// Symbols returns the constituent symbols in canonical order.
func (b Basket) Symbols() []string {
	out := make([]string, len(b.items))
	for i, inst := range b.items {
		out[i] = inst.Symbol
	}
	return out
}

// Len returns the number of constituents.
func (b Basket) Len() int { return len(b.items) }

// Lookup finds a constituent by symbol.
func (b Basket) Lookup(symbol string) (index.Instrument, bool) {
	for _, inst := range b.items {
		if inst.Symbol == symbol {
			return inst, true
		}
	}
	return index.Instrument{}, false
}

// String renders the basket in its environment form.
func (b Basket) String() string {
	parts := make([]string, len(b.items))
	for i, inst := range b.items {
		parts[i] = inst.Symbol + "=" + inst.Name
	}
	return strings.Join(parts, ",")
}

// Decode implements envconfig.Decoder.
func (b *Basket) Decode(value string) error {
	var instruments []index.Instrument
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		symbol, name, _ := strings.Cut(part, "=")
		instruments = append(instruments, index.Instrument{Symbol: symbol, Name: name})
	}
	if len(instruments) == 0 {
		return fmt.Errorf("basket %q has no instruments", value)
	}

	parsed, err := NewBasket(instruments...)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *Basket) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var instruments []index.Instrument
	if err := unmarshal(&instruments); err != nil {
		return err
	}
	parsed, err := NewBasket(instruments...)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b Basket) MarshalYAML() (interface{}, error) {
	return b.Instruments(), nil
}
