package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pricewatch/internal/types"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.ProductIdentity
	}{
		{
			name:  "stopwords excluded",
			input: "Tefal AeroSteam Garment Steamer",
			want: types.ProductIdentity{
				IdentifyingWords: []string{"tefal", "aerosteam"},
				Variants:         []string{},
			},
		},
		{
			name:  "tablet count",
			input: "Panadol Extra 120 Tablets",
			want: types.ProductIdentity{
				IdentifyingWords: []string{"panadol", "extra"},
				Variants:         []string{"120tablets"},
			},
		},
		{
			name:  "model number",
			input: "Bosch Serie 4 WAN28281GB",
			want: types.ProductIdentity{
				IdentifyingWords: []string{"bosch", "serie"},
				ModelNumber:      "wan28281gb",
				Variants:         []string{},
			},
		},
		{
			name:  "sizes and quantities",
			input: "Nike Dri-FIT Socks x3 Size M UK 10",
			want: types.ProductIdentity{
				IdentifyingWords: []string{"nike", "drifit"},
				Variants:         []string{"m", "uk10", "x3"},
			},
		},
		{
			name:  "empty",
			input: "",
			want: types.ProductIdentity{
				IdentifyingWords: []string{},
				Variants:         []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.input))
		})
	}
}

func TestDerive_Idempotent(t *testing.T) {
	input := "Sony WH1000XM5 Wireless Headphones 2 Pack 500ml Size L"
	assert.Equal(t, Derive(input), Derive(input))
}

func TestIdentifyingWords_SkipsShortAndGeneric(t *testing.T) {
	assert.Equal(t, []string{"dyson", "v15"}, IdentifyingWords("A The Dyson - V15 Detect"))
	assert.Equal(t, []string{}, IdentifyingWords("Black XL Mens"))
}

func TestModelNumber(t *testing.T) {
	tests := map[string]string{
		"Sony WH1000XM5 Headphones":  "wh1000xm5",
		"Bosch Serie 4 WAN28281GB":   "wan28281gb",
		"Apple AirPods Pro":          "",
		"Panadol Extra 120 Tablets":  "",
		"Philips Airfryer HD9252/91": "hd9252",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, ModelNumber(input))
		})
	}
}

func TestVariants(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Coca-Cola 24 x 330ml cans", []string{"330ml"}},
		{"Evian Water x12 1.5L", []string{"1.5l", "x12"}},
		{"Collector's Edition 2023 Release", []string{}},
		{"Charger 65W 240V for 12th Gen", []string{}},
		{"Dress Size 12 in Black", []string{"size12"}},
		{"H&M Cotton Shirt", []string{}},
		{"LEVI'S 501 ORIGINAL FIT JEANS", []string{}},
		{"LEVI’S 501 ORIGINAL FIT JEANS SIZE M", []string{"m"}},
		{"BEN & JERRY'S COOKIE DOUGH 465ML", []string{"465ml"}},
		{"Jumper Size XL, also XS", []string{"xl", "xs"}},
		{"120 tablets 120 Tablets", []string{"120tablets"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Variants(tt.input))
		})
	}
}

func TestContainsAll(t *testing.T) {
	ref := Variants("Panadol Extra 120 Tablets")

	assert.True(t, ContainsAll(Variants("Panadol Extra Advance 120 Tablets"), ref))
	assert.False(t, ContainsAll(Variants("Panadol Extra 60 Tablets"), ref))
	assert.True(t, ContainsAll(nil, nil))
	assert.True(t, ContainsAll([]string{"m", "x2"}, []string{"x2"}))
}

func TestFromGuess(t *testing.T) {
	assert.Equal(t, "Tefal AeroSteam", FromGuess(types.IdentityGuess{ItemName: "AeroSteam", Brand: "Tefal"}))
	assert.Equal(t, "Tefal AeroSteam", FromGuess(types.IdentityGuess{ItemName: "Tefal AeroSteam", Brand: "tefal"}))
	assert.Equal(t, "Kettle", FromGuess(types.IdentityGuess{ItemName: " Kettle "}))
}
