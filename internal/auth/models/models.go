package models

// IdentityClaims are the provider-agnostic identity assertions extracted
// from Google's user-info payload or a verified ID token.
type IdentityClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Subject string `json:"sub"`
}

// Account is the record owned by the peer account service. This service
// reads or triggers creation of it, never mutates it directly.
type Account struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Role    string `json:"role,omitempty"`
}

// TokenPair is a signed access/refresh credential pair. Stateless: no
// server-side session table backs it.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthResult is the federation response returned after login or signup.
type AuthResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// GoogleOAuthRequest is the body of a native-client login: a pre-issued
// provider ID token.
type GoogleOAuthRequest struct {
	IDToken string `json:"idToken"`
}

// CallbackRequest carries the authorization code from the provider redirect.
type CallbackRequest struct {
	Code string `json:"code"`
}

// TokenRequest carries a service-issued token for validation or logout.
type TokenRequest struct {
	Token string `json:"token"`
}

// FindByEmailRequest is the payload of the peer "getFindByEmail" operation.
type FindByEmailRequest struct {
	Email string `json:"email"`
}
