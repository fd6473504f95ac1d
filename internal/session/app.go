// internal/session/app.go
//
// Primary storefront session: cart and customer-account handles.

package session

import "net/http"

// AppCookieName is the storefront's first-party session cookie.
const AppCookieName = "__session"

// AppRecord holds commerce identifiers for one shopper.
type AppRecord struct {
	CartID              string `json:"cartId,omitempty"`
	CustomerAccessToken string `json:"customerAccessToken,omitempty"`
}

// LoggedIn reports whether a customer token is present.
func (a AppRecord) LoggedIn() bool { return a.CustomerAccessToken != "" }

// AppStore is the `__session` codec.
type AppStore struct {
	store *Store
}

// NewAppStore builds the app session codec.  Unlike the preview cookie it is
// never embedded cross-origin, so Lax is enough.
func NewAppStore(secrets []string, maxAge int) (*AppStore, error) {
	s, err := NewStore(CookieOptions{
		Name:     AppCookieName,
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}, secrets)
	if err != nil {
		return nil, err
	}
	return &AppStore{store: s}, nil
}

// Load decodes r's app session, or returns the empty record.
func (a *AppStore) Load(r *http.Request) AppRecord {
	var rec AppRecord
	if !a.store.Decode(r.Header.Get("Cookie"), &rec) {
		return AppRecord{}
	}
	return rec
}
