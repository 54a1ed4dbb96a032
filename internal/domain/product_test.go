package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Product
		want []string
	}{
		{
			name: "legacy single value wrapped",
			in:   Product{Brand: "Nike"},
			want: []string{"Nike"},
		},
		{
			name: "array wins over legacy value",
			in:   Product{Brand: "Nike", Brands: []string{"Adidas", "Puma"}},
			want: []string{"Adidas", "Puma"},
		},
		{
			name: "both empty",
			in:   Product{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			assert.Equal(t, tt.want, tt.in.Brands)
		})
	}
}

func TestNormalizeAllLegacyFields(t *testing.T) {
	p := Product{Brand: "Zara", Color: "черный", Material: "кожа"}
	p.Normalize()

	assert.Equal(t, []string{"Zara"}, p.Brands)
	assert.Equal(t, []string{"черный"}, p.Colors)
	assert.Equal(t, []string{"кожа"}, p.Materials)
}

func TestIndexable(t *testing.T) {
	assert.True(t, (&Product{IsActive: true, IsApproved: true}).Indexable())
	assert.False(t, (&Product{IsActive: true}).Indexable())
	assert.False(t, (&Product{IsApproved: true}).Indexable())
}

func TestPrimaryImageURL(t *testing.T) {
	assert.Empty(t, (&Product{}).PrimaryImageURL())

	p := &Product{Images: []ProductImage{
		{URL: "second.jpg", Position: 2},
		{URL: "first.jpg", Position: 1},
	}}
	assert.Equal(t, "first.jpg", p.PrimaryImageURL())
}
