package types

type BackgroundKind string

const (
	BackgroundLogin BackgroundKind = "login"
	BackgroundHome  BackgroundKind = "home"
)

func (k BackgroundKind) Valid() bool {
	return k == BackgroundLogin || k == BackgroundHome
}

type Backgrounds struct {
	Login string `json:"login,omitempty"`
	Home  string `json:"home,omitempty"`
}

func (b Backgrounds) Get(kind BackgroundKind) string {
	switch kind {
	case BackgroundLogin:
		return b.Login
	case BackgroundHome:
		return b.Home
	}
	return ""
}

// AppSettings is used both for the global settings and for the per-user settings.
type AppSettings struct {
	Background *Backgrounds `json:"background,omitempty"`
}

// Backgrounds returns the background references, never nil.
func (s AppSettings) Backgrounds() Backgrounds {
	if s.Background == nil {
		return Backgrounds{}
	}
	return *s.Background
}

// Overlay returns the global settings s with every background that user sets replaced by the user's value.
func (s AppSettings) Overlay(user AppSettings) AppSettings {
	global, own := s.Backgrounds(), user.Backgrounds()
	merged := global
	if own.Login != "" {
		merged.Login = own.Login
	}
	if own.Home != "" {
		merged.Home = own.Home
	}
	if merged == (Backgrounds{}) {
		return AppSettings{}
	}
	return AppSettings{Background: &merged}
}
