package loader

import (
	"context"

	"github.com/yanizio/storefront/internal/commerce"
	"github.com/yanizio/storefront/internal/rootctx"
)

// Consent configures the customer privacy API on the page.
type Consent struct {
	CheckoutDomain        string
	StorefrontAccessToken string
	WithPrivacyBanner     bool
	Country               string
	Language              string
}

// ShopAnalytics identifies the shop to the analytics collector.
type ShopAnalytics struct {
	ShopID           string
	SubchannelID     string
	AcceptedLanguage string
}

// RootData feeds the layout shared by every page.
type RootData struct {
	Header *commerce.Header
	Footer *Deferred[*commerce.Footer]

	Preview         bool
	AuthBypassToken string

	IsLoggedIn        bool
	CartID            string
	PublicStoreDomain string

	// Shop is nil in preview; consent scripts are blocked inside the
	// cross-origin studio iframe.
	Shop    *ShopAnalytics
	Consent Consent
}

// Root loads layout data.  The header menu is critical; the footer is
// deferred.
func Root(ctx context.Context, rc *rootctx.Context) (*RootData, error) {
	footer := Defer(ctx, "footer", rc.Storefront.Footer)

	header, err := rc.Storefront.Header(ctx)
	if err != nil {
		return nil, err
	}

	sf := rc.Config.Storefront
	data := &RootData{
		Header:            header,
		Footer:            footer,
		Preview:           rc.PreviewEnabled(),
		AuthBypassToken:   rc.AuthBypassToken,
		IsLoggedIn:        rc.Session.LoggedIn(),
		CartID:            rc.Session.CartID,
		PublicStoreDomain: sf.StoreDomain,
		Consent: Consent{
			CheckoutDomain:        sf.CheckoutDomain,
			StorefrontAccessToken: sf.APIToken,
			Country:               rc.I18n.Country,
			Language:              rc.I18n.Language,
		},
	}
	if !data.Preview {
		sub := sf.StorefrontID
		if sub == "" {
			sub = "0"
		}
		data.Shop = &ShopAnalytics{
			ShopID:           header.Shop.ID,
			SubchannelID:     sub,
			AcceptedLanguage: rc.I18n.Language,
		}
	}
	return data, nil
}

// ShouldRevalidate reports whether layout data must be reloaded when
// moving from currentURL to nextURL: always after a mutation, and when the
// same URL is requested again.
func ShouldRevalidate(formMethod, currentURL, nextURL string) bool {
	if formMethod != "" && formMethod != "GET" {
		return true
	}
	return currentURL == nextURL
}
