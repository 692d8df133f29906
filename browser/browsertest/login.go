package browsertest

import "github.com/liuxd6825/webaccept/browser"

// DefaultErrorText is the banner shown after a failed login.
const DefaultErrorText = "Please check your username and password. If you still can't log in, contact your Salesforce administrator."

// Element lookups of the login form.
var (
	UsernameField = browser.ID("username")
	PasswordField = browser.ID("password")
	LoginButton   = browser.ID("Login")
	RememberMe    = browser.ID("rememberUn")
	ErrorBanner   = browser.ID("error")
)

// NewLoginSession returns a session showing a login form. Clicking the login
// button reveals the error banner with errorText.
func NewLoginSession(errorText string) *Session {
	banner := NewElement(errorText).Hidden()
	s := NewSession().
		Add(UsernameField, NewElement("")).
		Add(PasswordField, NewElement("")).
		Add(RememberMe, NewElement("Remember me").Checkbox(false)).
		Add(ErrorBanner, banner)
	s.Add(LoginButton, NewElement("Log In").OnClick(func(*Session) {
		banner.Show()
	}))
	return s
}
