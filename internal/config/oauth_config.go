package config

type OAuthConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleIssuer() string
	GetGoogleRedirectURL() string
	IsGoogleEnabled() bool
}

type OAuth struct {
	src *source
	env EnvVars
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetGoogleClientID() string {
	return o.src.get("GOOGLE_CLIENT_ID", "")
}

func (o OAuth) GetGoogleClientSecret() string {
	return o.src.get("GOOGLE_CLIENT_SECRET", "")
}

func (o OAuth) GetGoogleIssuer() string {
	return o.src.get("GOOGLE_ISSUER", "https://accounts.google.com")
}

func (o OAuth) GetGoogleRedirectURL() string {
	return o.src.get("GOOGLE_REDIRECT_URL", o.env.GetBaseURL()+"/auth/callback/google")
}

func (o OAuth) IsGoogleEnabled() bool {
	return o.GetGoogleClientID() != "" && o.GetGoogleClientSecret() != ""
}
