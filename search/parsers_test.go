package search

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/document"
	"pricewatch/internal/types"
)

const duckDuckGoFixture = `<html><body><ul>
<li><a href="https://duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.boots.com%2Fpanadol-extra-120">
  <img src="https://img.example/boots.jpg">
  <div>Panadol Extra Advance 120 Tablets Pack</div><div>£9.99</div><div>Boots</div></a></li>
<li><a href="https://www.amazon.co.uk/dp/B01">
  <div>Panadol Extra Caplets 120 Pack</div><div>£8.49</div><div>Amazon UK</div></a></li>
<li><a href="https://www.chemist4u.co.uk/panadol">
  <div>Panadol Extra Soluble 120 Tablets</div><div>£7.25</div><div>Free delivery</div></a></li>
<li><a href="https://www.boots.com/panadol-dup">
  <div>Panadol Extra Advance 120 Tablets Pack</div><div>£9.49</div><div>Boots</div></a></li>
<li><a href="/filters">Price - Up to £10.00 - sort Low To High</a></li>
<li><a href="/x">short £1.00</a></li>
<li><div>Panadol Extra without any link at all</div><div>£3.00</div></li>
</ul></body></html>`

func TestParseDuckDuckGo(t *testing.T) {
	doc, err := document.FromHTML(duckDuckGoFixture, "https://duckduckgo.com/?q=panadol")
	require.NoError(t, err)

	results := ParseDuckDuckGo(doc)
	require.Len(t, results, 3)

	assert.Equal(t, "Chemist4u", results[0].StoreName)
	assert.Equal(t, 7.25, *results[0].Price)
	assert.Equal(t, "Panadol Extra Soluble 120 Tablets", results[0].Title)

	assert.Equal(t, "Amazon UK", results[1].StoreName)
	assert.Equal(t, "https://www.amazon.co.uk/dp/B01", results[1].ProductURL)

	boots := results[2]
	assert.Equal(t, "Boots", boots.StoreName)
	assert.Equal(t, 9.99, *boots.Price)
	assert.Equal(t, "https://www.boots.com/panadol-extra-120", boots.ProductURL)
	assert.Equal(t, "https://img.example/boots.jpg", boots.ImageURL)
	assert.Equal(t, "duckduckgo", boots.Source)
}

func TestDuckDuckGo_Search(t *testing.T) {
	r := &fakeRenderer{html: duckDuckGoFixture}
	ddg := NewDuckDuckGo(r, "", logrus.New())

	results, err := ddg.Search(context.Background(), "Panadol Extra 120")
	require.NoError(t, err)
	assert.Len(t, results, 3)
	require.Len(t, r.urls, 1)
	assert.Equal(t, "https://duckduckgo.com/?q=Panadol%20Extra%20120&iar=shopping&iax=shopping&ia=shopping", r.urls[0])
	assert.Equal(t, duckDuckGoSettle, r.opts[0].Settle)

	r.err = errors.New("navigation timeout")
	_, err = ddg.Search(context.Background(), "Panadol")
	assert.ErrorIs(t, err, types.ErrSearchFailed)
}

const googleFixture = `<html><body>
<div class="sh-dgr__gr-auto">
  <h3>Tefal AeroSteam Garment Steamer</h3>
  <span class="a8Pemb">£45.00</span>
  <div class="aULzUe">Argos</div>
  <a href="/url?q=https://www.argos.co.uk/product/123&amp;sa=U">View</a>
  <img src="https://encrypted.example/img.jpg">
</div>
<div class="sh-dgr__gr-auto">
  <h3>Tefal Pro Express Steam Generator</h3>
  <span class="a8Pemb">£1,049.99</span>
  <div class="aULzUe">Currys</div>
  <a href="https://www.google.com/shopping/product/123">Compare</a>
</div>
<div class="sh-dgr__gr-auto"><span class="a8Pemb">£10.00</span></div>
<div class="sh-dgr__gr-auto">
  <h3>Tefal AeroSteam</h3>
  <a href="https://www.johnlewis.com/tefal-aerosteam/p123">Shop</a>
</div>
</body></html>`

func TestParseGoogleShopping(t *testing.T) {
	doc, err := document.FromHTML(googleFixture, "https://www.google.com/search?q=tefal&tbm=shop")
	require.NoError(t, err)

	results := ParseGoogleShopping(doc)
	require.Len(t, results, 3)

	first := results[0]
	assert.Equal(t, "Tefal AeroSteam Garment Steamer", first.Title)
	assert.Equal(t, 45.0, *first.Price)
	assert.Equal(t, "Argos", first.StoreName)
	assert.Equal(t, "https://www.argos.co.uk/product/123", first.ProductURL)
	assert.Equal(t, "https://encrypted.example/img.jpg", first.ImageURL)

	second := results[1]
	assert.Equal(t, 1049.99, *second.Price)
	assert.Empty(t, second.ProductURL)

	third := results[2]
	assert.Nil(t, third.Price)
	assert.Equal(t, "John Lewis", third.StoreName)
}

func TestParseGoogleShopping_FallbackLinks(t *testing.T) {
	html := `<html><body><a href="/url?q=https://www.currys.co.uk/products/kettle"><h3>Russell Hobbs Kettle</h3></a></body></html>`
	doc, err := document.FromHTML(html, "https://www.google.com/search?q=kettle")
	require.NoError(t, err)

	results := ParseGoogleShopping(doc)
	require.Len(t, results, 1)
	assert.Equal(t, "https://www.currys.co.uk/products/kettle", results[0].ProductURL)
	assert.Equal(t, "Currys", results[0].StoreName)
}

func TestGoogleShopping_Search(t *testing.T) {
	r := &fakeRenderer{html: googleFixture}
	g := NewGoogleShopping(r, "", logrus.New())

	results, err := g.Search(context.Background(), "tefal aerosteam")
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "https://www.google.com/search?q=tefal%20aerosteam&tbm=shop&hl=en", r.urls[0])
	assert.NotEmpty(t, r.opts[0].ConsentSelectors)

	best, ok := Preferred(results, "john lewis")
	require.True(t, ok)
	assert.Equal(t, "John Lewis", best.StoreName)

	best, ok = Preferred(results, "Tesco")
	require.True(t, ok)
	assert.Equal(t, "Argos", best.StoreName)

	_, ok = Preferred(nil, "")
	assert.False(t, ok)
}
